package queue

import (
	"encoding/json"
	"testing"
)

type payload struct {
	RunID string `json:"run_id"`
	Days  int    `json:"days"`
}

func TestParsePayload(t *testing.T) {
	raw := []byte(`{"run_id":"abc","days":7}`)
	cases := map[string]interface{}{
		"struct":  payload{RunID: "abc", Days: 7},
		"pointer": &payload{RunID: "abc", Days: 7},
		"map":     map[string]interface{}{"run_id": "abc", "days": 7},
		"raw":     json.RawMessage(raw),
		"bytes":   raw,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParsePayload[payload](in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.RunID != "abc" || got.Days != 7 {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestParsePayloadRejectsUnknownType(t *testing.T) {
	if _, err := ParsePayload[payload](42); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ParsePayload[payload](json.RawMessage(`{"days":"x"}`)); err == nil {
		t.Fatal("expected decode error")
	}
}
