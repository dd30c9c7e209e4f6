package chat_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

func TestSystemMessage(t *testing.T) {
	msg := chat.SystemMessage("alice", chat.StatusConnected)
	data, err := msg.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"sender":"alice","message":"connected"}`, string(data))

	left := chat.SystemMessage("alice", chat.StatusLeft)
	assert.Equal(t, "left chat", left["message"])
}

func TestDecodeMessage_RelaysObjectsVerbatim(t *testing.T) {
	raw := `{"text":"hi","n":12345678901234567890,"nested":{"ok":true},"list":[1,2]}`

	msg, err := chat.DecodeMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567890"), msg["n"])

	out, err := msg.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestDecodeMessage_RejectsNonObjects(t *testing.T) {
	cases := map[string]string{
		"not json":      `hello`,
		"array":         `[1,2,3]`,
		"string":        `"hi"`,
		"number":        `42`,
		"null":          `null`,
		"truncated":     `{"text":`,
		"two objects":   `{"a":1}{"b":2}`,
		"trailing junk": `{"a":1} x`,
		"empty":         ``,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := chat.DecodeMessage([]byte(raw))
			assert.ErrorIs(t, err, chat.ErrMalformedMessage)
		})
	}
}

func TestDecodeMessage_EmptyObjectIsValid(t *testing.T) {
	msg, err := chat.DecodeMessage([]byte(` {} `))
	require.NoError(t, err)
	assert.Empty(t, msg)
}
