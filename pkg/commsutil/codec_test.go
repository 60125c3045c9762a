package commsutil

import (
	"testing"
)

const codecTestPrefix = "commsutil:codec_test"

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    string
		wantErr bool
	}{
		{name: "map", input: map[string]string{"op": "insert"}, want: `{"op":"insert"}`},
		{name: "struct", input: struct {
			ID string `json:"id"`
		}{ID: "r-1"}, want: `{"id":"r-1"}`},
		{name: "nil", input: nil, want: "null"},
		{name: "channel is not serializable", input: make(chan int), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePayload(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("%s - expected error, got nil", codecTestPrefix)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", codecTestPrefix, err)
			}
			if string(data) != tt.want {
				t.Errorf("%s - got %s, want %s", codecTestPrefix, data, tt.want)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	var out struct {
		Op string `json:"op"`
	}
	if err := DecodePayload([]byte(`{"op":"update"}`), &out); err != nil {
		t.Fatalf("%s - unexpected error: %v", codecTestPrefix, err)
	}
	if out.Op != "update" {
		t.Errorf("%s - Op = %q, want update", codecTestPrefix, out.Op)
	}

	if err := DecodePayload([]byte(`{invalid}`), &out); err == nil {
		t.Errorf("%s - expected error for invalid JSON", codecTestPrefix)
	}
	if err := DecodePayload(nil, &out); err == nil {
		t.Errorf("%s - expected error for empty payload", codecTestPrefix)
	}
}
