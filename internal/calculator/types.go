package calculator

import (
	"fmt"

	"go-chi-calculator/internal/engine"
)

// EventRequest is one input event in wire form.
type EventRequest struct {
	Type  string `json:"type"`            // "digit", "dot", "toggle_sign", "clear", "clear_entry", "backspace", "operator", "special", "equals"
	Digit int    `json:"digit,omitempty"` // 0-9, only for "digit"
	Op    string `json:"op,omitempty"`    // "+", "-", "×"/"*", "÷"/"/" or "square", "sqrt", "reciprocal", "percent"
}

// EventsRequest is the JSON body for POST /calculator/sessions/{id}/events.
type EventsRequest struct {
	Events []EventRequest `json:"events"`
}

// KeysRequest is the JSON body for POST /calculator/sessions/{id}/keys.
type KeysRequest struct {
	Keys []string `json:"keys"`
}

// SessionResponse is the rendering state returned by every session endpoint.
type SessionResponse struct {
	ID              string `json:"id"`
	Entry           string `json:"entry"`
	Formula         string `json:"formula"`
	ControlsEnabled bool   `json:"controls_enabled"`
	Error           string `json:"error,omitempty"`
}

func newSessionResponse(id string, st engine.State) SessionResponse {
	return SessionResponse{
		ID:              id,
		Entry:           st.Entry,
		Formula:         st.Formula,
		ControlsEnabled: st.ControlsEnabled,
		Error:           st.Error.String(),
	}
}

func (req EventsRequest) toEngine() ([]engine.Event, error) {
	if len(req.Events) == 0 {
		return nil, fmt.Errorf("events array is empty")
	}

	events := make([]engine.Event, 0, len(req.Events))
	for i, e := range req.Events {
		ev, err := engine.ParseEvent(e.Type, e.Digit, e.Op)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (req KeysRequest) toEngine() ([]engine.Event, error) {
	if len(req.Keys) == 0 {
		return nil, fmt.Errorf("keys array is empty")
	}

	events := make([]engine.Event, 0, len(req.Keys))
	for i, k := range req.Keys {
		ev, ok := engine.ParseKey(k)
		if !ok {
			return nil, fmt.Errorf("key %d: %w: %q", i, engine.ErrUnknownEvent, k)
		}
		events = append(events, ev)
	}
	return events, nil
}
