package speech

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/kwalter/dungeonloom/internal/service/generation"
)

func newTTSServer(t *testing.T, handle func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-App-Key") == "" {
			t.Error("missing app key header")
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handle(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSynthesizeCollectsAudioChunks(t *testing.T) {
	server := newTTSServer(t, func(conn *websocket.Conn) {
		// Consume the synthesis request frame first.
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read request: %v", err)
			return
		}
		if _, err := DecodeMessage(bytes.NewReader(data)); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		chunk := &Message{
			Header:  NewHeader(AudioOnlyServerResponse, NoSequenceNumber, NoSerialization),
			Payload: []byte("part-one-"),
		}
		conn.WriteMessage(websocket.BinaryMessage, EncodeMessage(chunk))

		last := &Message{
			Header:  NewHeader(AudioOnlyServerResponse, LastPacketNoSequence, NoSerialization),
			Payload: []byte("part-two"),
		}
		conn.WriteMessage(websocket.BinaryMessage, EncodeMessage(last))
	})
	defer server.Close()

	synth := NewSynthesizer(Config{
		Endpoint:    wsURL(server),
		AppID:       "app",
		AccessToken: "token",
		Voice:       "narrator-voice",
	})

	audio, err := synth.Synthesize(context.Background(), "You enter a cave.")
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if string(audio) != "part-one-part-two" {
		t.Fatalf("unexpected audio bytes: %q", audio)
	}
}

func TestSynthesizeServerError(t *testing.T) {
	server := newTTSServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
		errFrame := &Message{
			Header:    NewHeader(ErrorMessage, NoSequenceNumber, JSONSerialization),
			ErrorCode: 45000001,
			Payload:   []byte(`{"error":"invalid speaker"}`),
		}
		conn.WriteMessage(websocket.BinaryMessage, EncodeMessage(errFrame))
	})
	defer server.Close()

	synth := NewSynthesizer(Config{Endpoint: wsURL(server), AppID: "app", AccessToken: "token"})

	_, err := synth.Synthesize(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
	if generation.IsTransient(err) {
		t.Fatalf("API error must be terminal, got %v", err)
	}
}

func TestSynthesizeDialFailureIsTransient(t *testing.T) {
	synth := NewSynthesizer(Config{Endpoint: "ws://127.0.0.1:1", AppID: "app", AccessToken: "token"})

	_, err := synth.Synthesize(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
	if !generation.IsTransient(err) {
		t.Fatalf("dial failure must be transient, got %v", err)
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	synth := NewSynthesizer(Config{AppID: "app", AccessToken: "token"})

	if _, err := synth.Synthesize(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty text")
	}
}
