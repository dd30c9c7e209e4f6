package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// System message texts announced on join and leave.
const (
	StatusConnected = "connected"
	StatusLeft      = "left chat"
)

// Message is a schemaless JSON object relayed between clients.
type Message map[string]any

// SystemMessage builds the {sender, message} frame announced by the relay.
func SystemMessage(identity, text string) Message {
	return Message{
		"sender":  identity,
		"message": text,
	}
}

// DecodeMessage parses one JSON object. Numbers are kept as json.Number so
// they are re-encoded exactly as received. Anything other than a single
// object is reported as ErrMalformedMessage.
func DecodeMessage(data []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var msg Message
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedMessage)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedMessage)
	}
	return msg, nil
}

// Encode renders the message as a compact JSON object.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
