// Package replication encodes server frames for the wire. State frames are
// msgpack with the same field names as the JSON envelopes.
package replication

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"lanerush/backend/internal/shared/types"
)

// Encode serialises an envelope to a binary frame.
func Encode(env types.ServerEnvelope) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetOmitEmpty(true)
	if err := enc.Encode(&env); err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", env.Type, err)
	}
	return buf.Bytes(), nil
}

// Decode parses a binary frame produced by Encode.
func Decode(data []byte) (types.ServerEnvelope, error) {
	var env types.ServerEnvelope
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&env); err != nil {
		return types.ServerEnvelope{}, fmt.Errorf("decode frame: %w", err)
	}
	return env, nil
}
