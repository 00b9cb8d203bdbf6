package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRemoteStatus: бэкенд ответил 2xx, но в конверте status "Error" или непустой error.
	ErrRemoteStatus = errors.New("remote error")
)

const statusError = "Error"

// Envelope: единый формат ответа бэкенда {"status": "...", "data": ..., "error": "..."}.
type Envelope struct {
	Status string          `json:"status,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// legacyEnvelope: старые формы ответа ({orders:[...]}, {result:[...]}),
// принимаются только с LegacyEnvelopes.
type legacyEnvelope struct {
	Orders json.RawMessage `json:"orders"`
	Result json.RawMessage `json:"result"`
}

// decodeEnvelope раскладывает тело в out. Пустой data оставляет out нетронутым.
func decodeEnvelope(body []byte, out any, legacy bool) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}

	if body[0] == '{' {
		var env Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}

		if strings.EqualFold(env.Status, statusError) || env.Error != "" {
			msg := env.Error
			if msg == "" {
				msg = "status " + env.Status
			}
			return fmt.Errorf("%w: %s", ErrRemoteStatus, msg)
		}

		if hasValue(env.Data) {
			return unmarshalInto(env.Data, out)
		}

		if legacy {
			var old legacyEnvelope
			if err := json.Unmarshal(body, &old); err == nil {
				switch {
				case hasValue(old.Orders):
					return unmarshalInto(old.Orders, out)
				case hasValue(old.Result):
					return unmarshalInto(old.Result, out)
				}
			}

			if env.Status == "" && env.Error == "" {
				return unmarshalInto(body, out)
			}
		}

		return nil
	}

	if legacy {
		return unmarshalInto(body, out)
	}

	return fmt.Errorf("%w: expected envelope object", ErrMalformedResponse)
}

func hasValue(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func unmarshalInto(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}
