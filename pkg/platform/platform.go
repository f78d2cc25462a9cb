// Package platform defines the wire contract with the voice platform:
// one request and one response per turn.
package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingUser is the one malformed-request condition that fails a turn
// outright. Everything else gets a spoken recovery.
var ErrMissingUser = errors.New("request missing userId")

// TurnRequest is one voice turn as delivered by the platform.
// SessionAttributes round-trips the serialized session for platforms that
// prefer carrying state themselves; the durable store stays authoritative.
type TurnRequest struct {
	UserID            string          `json:"userId"`
	Utterance         string          `json:"utterance"`
	SessionAttributes json.RawMessage `json:"sessionAttributes,omitempty"`
}

// TurnResponse always ends with the mic open; a voice menu has no
// terminal reply.
type TurnResponse struct {
	SpokenText        string          `json:"spokenText"`
	ShouldEndSession  bool            `json:"shouldEndSession"`
	SessionAttributes json.RawMessage `json:"sessionAttributes,omitempty"`
}

// ParseTurnRequest decodes and validates a request body.
func ParseTurnRequest(raw []byte) (TurnRequest, error) {
	var req TurnRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return TurnRequest{}, fmt.Errorf("decode turn request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return TurnRequest{}, err
	}
	return req, nil
}

func (r TurnRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrMissingUser
	}
	return nil
}
