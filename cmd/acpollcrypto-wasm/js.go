//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/vocdoni/acpoll/types"
)

// FromJSONValue decodes a JSON encoded JavaScript string into a T.
func FromJSONValue[T any](v js.Value) (T, error) {
	var result T
	if v.Type() != js.TypeString {
		return result, fmt.Errorf("expected a JSON encoded string, got %s", v.Type())
	}
	if err := json.Unmarshal([]byte(v.String()), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// FromUint8 reads a JavaScript number in the uint8 range.
func FromUint8(v js.Value) (uint8, error) {
	if v.Type() != js.TypeNumber {
		return 0, fmt.Errorf("value is not a number")
	}
	n := v.Int()
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("%d out of uint8 range", n)
	}
	return uint8(n), nil
}

// FromHashBytes reads a hex string of at most 32 bytes.
func FromHashBytes(v js.Value) (types.HashBytes, error) {
	if v.Type() != js.TypeString {
		return types.HashBytes{}, fmt.Errorf("value provided is not a string")
	}
	return types.HashBytesFromHex(v.String())
}

// JSResult returns an object with a data field, or an error field if err is
// not nil, usable from browsers and Node.js alike.
func JSResult(data any, err ...error) js.Value {
	if joined := errors.Join(err...); joined != nil {
		return js.ValueOf(map[string]any{"error": joined.Error()})
	}
	return js.ValueOf(map[string]any{"data": data})
}
