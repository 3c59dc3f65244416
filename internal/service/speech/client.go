package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kwalter/dungeonloom/internal/service/generation"
)

// DefaultEndpoint is the narration synthesis websocket endpoint.
const DefaultEndpoint = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

// Config carries the opaque TTS backend bindings.
type Config struct {
	Endpoint    string
	AppID       string
	AccessToken string
	Voice       string
	Speed       float32
	Volume      float32
}

// Synthesizer converts narration text to audio bytes over the binary
// websocket protocol. It satisfies the generation gateway's audio backend
// contract.
type Synthesizer struct {
	cfg    Config
	dialer *websocket.Dialer
}

// NewSynthesizer creates the TTS client.
func NewSynthesizer(cfg Config) *Synthesizer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &Synthesizer{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
	}
}

type synthesisRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string `json:"speaker"`
		Text        string `json:"text"`
		AudioParams struct {
			Format      string  `json:"format"`
			SampleRate  int     `json:"sample_rate"`
			SpeedRatio  float32 `json:"speed_ratio,omitempty"`
			VolumeRatio float32 `json:"volume_ratio,omitempty"`
		} `json:"audio_params"`
	} `json:"req_params"`
}

type serverMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
}

// Synthesize renders text into mp3 audio bytes. Connection and read
// failures are marked transient; protocol and API errors are terminal.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesis text is empty")
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", s.cfg.AppID)
	header.Set("X-Api-Access-Key", s.cfg.AccessToken)
	header.Set("X-Api-Connect-Id", uuid.NewString())

	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.Endpoint, header)
	if err != nil {
		return nil, generation.MarkTransient(fmt.Errorf("failed to connect to TTS endpoint: %w", err))
	}
	defer conn.Close()

	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[speech] connected with logid %s", logid)
		}
	}

	payload, err := json.Marshal(s.buildRequest(text))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, EncodeMessage(NewSynthesisRequest(payload))); err != nil {
		return nil, generation.MarkTransient(fmt.Errorf("failed to send synthesis request: %w", err))
	}

	return s.collectAudio(ctx, conn)
}

func (s *Synthesizer) buildRequest(text string) *synthesisRequest {
	req := &synthesisRequest{}
	req.User.UID = uuid.NewString()
	req.ReqParams.Speaker = s.cfg.Voice
	req.ReqParams.Text = text
	req.ReqParams.AudioParams.Format = "mp3"
	req.ReqParams.AudioParams.SampleRate = 24000
	req.ReqParams.AudioParams.SpeedRatio = s.cfg.Speed
	req.ReqParams.AudioParams.VolumeRatio = s.cfg.Volume
	return req
}

func (s *Synthesizer) collectAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var audio bytes.Buffer

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, generation.MarkTransient(fmt.Errorf("failed to read synthesis response: %w", err))
		}

		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode synthesis frame: %w", err)
		}

		switch msg.Header.MessageType {
		case ErrorMessage:
			return nil, fmt.Errorf("TTS error %d: %s", msg.ErrorCode, msg.Payload)

		case AudioOnlyServerResponse:
			audio.Write(msg.Payload)
			if msg.IsLastPacket() {
				return finishAudio(&audio)
			}

		case FullServerResponse:
			var server serverMessage
			if len(msg.Payload) > 0 {
				if err := json.Unmarshal(msg.Payload, &server); err != nil {
					log.Printf("[speech] failed to unmarshal response payload: %v", err)
				}
			}
			if server.Code != 0 && server.Code != 3000 {
				return nil, fmt.Errorf("TTS API error %d: %s", server.Code, server.Message)
			}
			if server.Data != "" {
				chunk, err := base64.StdEncoding.DecodeString(server.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to decode base64 audio chunk: %w", err)
				}
				audio.Write(chunk)
			}
			if msg.IsLastPacket() || server.Sequence < 0 {
				return finishAudio(&audio)
			}

		default:
			log.Printf("[speech] unexpected message type: %d", msg.Header.MessageType)
		}
	}
}

func finishAudio(audio *bytes.Buffer) ([]byte, error) {
	if audio.Len() == 0 {
		return nil, fmt.Errorf("TTS returned no audio")
	}
	return audio.Bytes(), nil
}
