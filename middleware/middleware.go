// Package middleware provides ready-made payload middlewares for the pulse
// event bus, operating on JSON payloads ([]byte, string, or json.RawMessage).
// Non-JSON payloads pass through the transforms untouched; the validator
// rejects them, since validation requires a JSON document.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/pulsekit/pulse"
)

// Sentinel errors for payload validation.
var (
	// ErrInvalidPayload is returned when a validator receives a payload that
	// is not a JSON document.
	ErrInvalidPayload = errors.New("payload is not a JSON document")

	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")
)

// redactedPlaceholder replaces redacted field values.
const redactedPlaceholder = "[REDACTED]"

// Timestamp returns a middleware that injects the emission time into JSON
// payloads under the given field, in RFC 3339 format. Non-JSON payloads pass
// through unchanged.
func Timestamp(field string) pulse.Middleware {
	return func(_ context.Context, _ string, data any) (any, error) {
		raw, ok := jsonBytes(data)
		if !ok || !gjson.ValidBytes(raw) {
			return data, nil
		}
		out, err := sjson.SetBytes(raw, field, time.Now().Format(time.RFC3339Nano))
		if err != nil {
			return nil, err
		}
		return restore(data, out), nil
	}
}

// RequireFields returns a validating middleware that fails the emission when
// the JSON payload is missing any of the given fields (gjson path syntax).
// A failed validation aborts the emission before it reaches history or any
// listener.
func RequireFields(fields ...string) pulse.Middleware {
	return func(_ context.Context, event string, data any) (any, error) {
		raw, ok := jsonBytes(data)
		if !ok || !gjson.ValidBytes(raw) {
			return nil, fmt.Errorf("%w: event %q", ErrInvalidPayload, event)
		}
		for _, field := range fields {
			if !gjson.GetBytes(raw, field).Exists() {
				return nil, fmt.Errorf("%w: %q in event %q", ErrMissingField, field, event)
			}
		}
		return data, nil
	}
}

// Redact returns a middleware that replaces the given fields of JSON payloads
// with a placeholder before the payload is recorded into history or handed to
// listeners. Absent fields and non-JSON payloads are left untouched.
func Redact(fields ...string) pulse.Middleware {
	return func(_ context.Context, _ string, data any) (any, error) {
		raw, ok := jsonBytes(data)
		if !ok || !gjson.ValidBytes(raw) {
			return data, nil
		}
		var err error
		for _, field := range fields {
			if !gjson.GetBytes(raw, field).Exists() {
				continue
			}
			raw, err = sjson.SetBytes(raw, field, redactedPlaceholder)
			if err != nil {
				return nil, err
			}
		}
		return restore(data, raw), nil
	}
}

// jsonBytes extracts the raw bytes of a JSON-ish payload.
func jsonBytes(data any) ([]byte, bool) {
	switch v := data.(type) {
	case []byte:
		return v, true
	case json.RawMessage:
		return []byte(v), true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}

// restore converts transformed bytes back to the payload's original type.
func restore(orig any, raw []byte) any {
	switch orig.(type) {
	case string:
		return string(raw)
	case json.RawMessage:
		return json.RawMessage(raw)
	default:
		return raw
	}
}
