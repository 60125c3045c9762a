package commsutil

import (
	"encoding/json"
	"errors"
	"fmt"
)

const codecLogPrefix = "commsutil:codec"

// EncodePayload serializes a COMMS message body as JSON.
func EncodePayload(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s - encode: %w", codecLogPrefix, err)
	}
	return data, nil
}

// DecodePayload deserializes a COMMS message body into v.
func DecodePayload(data []byte, v interface{}) error {
	if len(data) == 0 {
		return errors.New(codecLogPrefix + " - decode: empty payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s - decode: %w", codecLogPrefix, err)
	}
	return nil
}
