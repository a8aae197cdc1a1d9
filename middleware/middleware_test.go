package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestTimestamp(t *testing.T) {
	mw := Timestamp("emitted_at")

	out, err := mw(context.Background(), "evt", []byte(`{"user":"alice"}`))
	if err != nil {
		t.Fatalf("middleware error = %v", err)
	}

	raw, ok := out.([]byte)
	if !ok {
		t.Fatalf("output type = %T, want []byte", out)
	}
	stamp := gjson.GetBytes(raw, "emitted_at")
	if !stamp.Exists() {
		t.Fatal("emitted_at field not set")
	}
	if _, perr := time.Parse(time.RFC3339Nano, stamp.String()); perr != nil {
		t.Errorf("emitted_at = %q is not RFC 3339: %v", stamp.String(), perr)
	}
	if gjson.GetBytes(raw, "user").String() != "alice" {
		t.Error("existing fields should be preserved")
	}
}

func TestTimestamp_NonJSONPassthrough(t *testing.T) {
	mw := Timestamp("emitted_at")

	payload := struct{ N int }{42}
	out, err := mw(context.Background(), "evt", payload)
	if err != nil {
		t.Fatalf("middleware error = %v", err)
	}
	if out != payload {
		t.Errorf("non-JSON payload changed: %v", out)
	}
}

func TestRequireFields(t *testing.T) {
	mw := RequireFields("user.id", "action")

	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"all present", `{"user":{"id":7},"action":"login"}`, nil},
		{"missing nested", `{"user":{},"action":"login"}`, ErrMissingField},
		{"missing top-level", `{"user":{"id":7}}`, ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := mw(context.Background(), "evt", []byte(tt.payload))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("err = %v, want nil", err)
				}
				if string(out.([]byte)) != tt.payload {
					t.Error("validator should pass payload through unchanged")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireFields_NonJSON(t *testing.T) {
	mw := RequireFields("id")

	if _, err := mw(context.Background(), "evt", 42); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("err = %v, want ErrInvalidPayload", err)
	}
	if _, err := mw(context.Background(), "evt", []byte("not json")); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("err = %v, want ErrInvalidPayload for malformed bytes", err)
	}
}

func TestRedact(t *testing.T) {
	mw := Redact("password", "token")

	out, err := mw(context.Background(), "evt", []byte(`{"user":"alice","password":"hunter2"}`))
	if err != nil {
		t.Fatalf("middleware error = %v", err)
	}

	raw := out.([]byte)
	if got := gjson.GetBytes(raw, "password").String(); got != "[REDACTED]" {
		t.Errorf("password = %q, want placeholder", got)
	}
	if got := gjson.GetBytes(raw, "user").String(); got != "alice" {
		t.Errorf("user = %q, untouched fields should survive", got)
	}
	// Absent fields are not created.
	if gjson.GetBytes(raw, "token").Exists() {
		t.Error("absent field should not be added by redaction")
	}
}

func TestRedact_NonJSONPassthrough(t *testing.T) {
	mw := Redact("password")

	out, err := mw(context.Background(), "evt", "plain text")
	if err != nil {
		t.Fatalf("middleware error = %v", err)
	}
	if out != "plain text" {
		t.Errorf("out = %v, want unchanged payload", out)
	}
}

func TestPayloadTypeRestored(t *testing.T) {
	mw := Redact("secret")

	out, err := mw(context.Background(), "evt", `{"secret":"x"}`)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(string); !ok {
		t.Errorf("string payload came back as %T", out)
	}

	out, err = mw(context.Background(), "evt", json.RawMessage(`{"secret":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(json.RawMessage); !ok {
		t.Errorf("json.RawMessage payload came back as %T", out)
	}
}
