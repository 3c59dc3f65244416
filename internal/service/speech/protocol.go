package speech

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ProtocolVersion is the binary websocket protocol version the TTS endpoint
// speaks. Frames carry a 4-byte header, optional sequence number, and a
// length-prefixed payload.
const ProtocolVersion = 0b0001

// MessageType identifies the frame kind.
type MessageType uint8

const (
	// FullClientRequest carries the JSON synthesis request.
	FullClientRequest MessageType = 0b0001
	// FullServerResponse carries a JSON status payload.
	FullServerResponse MessageType = 0b1001
	// AudioOnlyServerResponse carries a raw audio chunk.
	AudioOnlyServerResponse MessageType = 0b1011
	// ErrorMessage carries an error code and a JSON error payload.
	ErrorMessage MessageType = 0b1111
)

// MessageFlags modify how the frame is framed after the header.
type MessageFlags uint8

const (
	NoSequenceNumber       MessageFlags = 0b0000
	PositiveSequenceNumber MessageFlags = 0b0001
	LastPacketNoSequence   MessageFlags = 0b0010
	NegativeSequenceNumber MessageFlags = 0b0011
)

// SerializationMethod describes the payload encoding.
type SerializationMethod uint8

const (
	NoSerialization   SerializationMethod = 0b0000
	JSONSerialization SerializationMethod = 0b0001
)

// Header is the fixed 4-byte frame header.
type Header struct {
	ProtocolVersion     uint8
	HeaderSize          uint8
	MessageType         MessageType
	MessageFlags        MessageFlags
	SerializationMethod SerializationMethod
	Reserved            uint8
}

// Message is one decoded protocol frame.
type Message struct {
	Header      Header
	Sequence    int32
	ErrorCode   uint32
	PayloadSize uint32
	Payload     []byte
}

// NewHeader builds a header for the given frame kind.
func NewHeader(msgType MessageType, flags MessageFlags, serialization SerializationMethod) Header {
	return Header{
		ProtocolVersion:     ProtocolVersion,
		HeaderSize:          0b0001,
		MessageType:         msgType,
		MessageFlags:        flags,
		SerializationMethod: serialization,
	}
}

// Encode packs the header into its 4-byte wire form.
func (h *Header) Encode() []byte {
	return []byte{
		(h.ProtocolVersion << 4) | h.HeaderSize,
		(uint8(h.MessageType) << 4) | uint8(h.MessageFlags),
		uint8(h.SerializationMethod) << 4,
		h.Reserved,
	}
}

// DecodeHeader unpacks a 4-byte wire header.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("header data too short: got %d, need 4", len(data))
	}

	header := &Header{
		ProtocolVersion:     (data[0] >> 4) & 0x0F,
		HeaderSize:          data[0] & 0x0F,
		MessageType:         MessageType((data[1] >> 4) & 0x0F),
		MessageFlags:        MessageFlags(data[1] & 0x0F),
		SerializationMethod: SerializationMethod((data[2] >> 4) & 0x0F),
		Reserved:            data[3],
	}

	if header.ProtocolVersion != ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", header.ProtocolVersion)
	}
	return header, nil
}

// EncodeMessage serializes a frame for the wire.
func EncodeMessage(msg *Message) []byte {
	buf := bytes.NewBuffer(msg.Header.Encode())

	if msg.Header.MessageFlags&0b0001 != 0 {
		_ = binary.Write(buf, binary.BigEndian, uint32(msg.Sequence))
	}
	if msg.Header.MessageType == ErrorMessage {
		_ = binary.Write(buf, binary.BigEndian, msg.ErrorCode)
	}

	_ = binary.Write(buf, binary.BigEndian, uint32(len(msg.Payload)))
	buf.Write(msg.Payload)
	return buf.Bytes()
}

// DecodeMessage reads one frame from the reader.
func DecodeMessage(reader io.Reader) (*Message, error) {
	headerBytes := make([]byte, 4)
	if _, err := io.ReadFull(reader, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	header, err := DecodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}
	msg := &Message{Header: *header}

	// Skip any extended header bytes beyond the fixed four.
	if extra := int(header.HeaderSize)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, reader, int64(extra)); err != nil {
			return nil, fmt.Errorf("failed to read extended header: %w", err)
		}
	}

	if header.MessageFlags&0b0001 != 0 {
		var seq uint32
		if err := binary.Read(reader, binary.BigEndian, &seq); err != nil {
			return nil, fmt.Errorf("failed to read sequence: %w", err)
		}
		msg.Sequence = int32(seq)
	}

	if header.MessageType == ErrorMessage {
		if err := binary.Read(reader, binary.BigEndian, &msg.ErrorCode); err != nil {
			return nil, fmt.Errorf("failed to read error code: %w", err)
		}
	}

	if err := binary.Read(reader, binary.BigEndian, &msg.PayloadSize); err != nil {
		return nil, fmt.Errorf("failed to read payload size: %w", err)
	}

	if msg.PayloadSize > 0 {
		msg.Payload = make([]byte, msg.PayloadSize)
		if _, err := io.ReadFull(reader, msg.Payload); err != nil {
			return nil, fmt.Errorf("failed to read payload (expected %d bytes): %w", msg.PayloadSize, err)
		}
	}

	return msg, nil
}

// NewSynthesisRequest wraps a JSON synthesis payload in a client frame.
func NewSynthesisRequest(payload []byte) *Message {
	return &Message{
		Header:      NewHeader(FullClientRequest, NoSequenceNumber, JSONSerialization),
		PayloadSize: uint32(len(payload)),
		Payload:     payload,
	}
}

// IsLastPacket reports whether this frame terminates the stream.
func (m *Message) IsLastPacket() bool {
	switch m.Header.MessageFlags & 0b0011 {
	case LastPacketNoSequence, NegativeSequenceNumber:
		return true
	default:
		return false
	}
}
