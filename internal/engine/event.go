package engine

import "fmt"

// EventKind identifies an input event delivered by the host UI.
type EventKind int

const (
	EventDigit EventKind = iota + 1
	EventDot
	EventToggleSign
	EventClear
	EventClearEntry
	EventBackspace
	EventBinaryOperator
	EventSpecialOperation
	EventEquals
)

var eventNames = map[EventKind]string{
	EventDigit:            "digit",
	EventDot:              "dot",
	EventToggleSign:       "toggle_sign",
	EventClear:            "clear",
	EventClearEntry:       "clear_entry",
	EventBackspace:        "backspace",
	EventBinaryOperator:   "operator",
	EventSpecialOperation: "special",
	EventEquals:           "equals",
}

func (k EventKind) String() string {
	if s, ok := eventNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is one discrete input. Digit is used by EventDigit, Op by
// EventBinaryOperator and Special by EventSpecialOperation.
type Event struct {
	Kind    EventKind
	Digit   int
	Op      BinaryOp
	Special SpecialOp
}

func Digit(d int) Event {
	return Event{Kind: EventDigit, Digit: d}
}

func Operator(op BinaryOp) Event {
	return Event{Kind: EventBinaryOperator, Op: op}
}

func Special(op SpecialOp) Event {
	return Event{Kind: EventSpecialOperation, Special: op}
}

// Simple returns an event that carries no payload, such as EventEquals.
func Simple(kind EventKind) Event {
	return Event{Kind: kind}
}

// ParseEvent builds an event from its wire form. op is only read for the
// "operator" and "special" kinds.
func ParseEvent(kind string, digit int, op string) (Event, error) {
	switch kind {
	case "digit":
		if digit < 0 || digit > 9 {
			return Event{}, fmt.Errorf("%w: digit %d out of range", ErrUnknownEvent, digit)
		}
		return Digit(digit), nil
	case "operator":
		bop, ok := ParseBinaryOp(op)
		if !ok {
			return Event{}, fmt.Errorf("%w: operator %q", ErrUnknownEvent, op)
		}
		return Operator(bop), nil
	case "special":
		sop, ok := ParseSpecialOp(op)
		if !ok {
			return Event{}, fmt.Errorf("%w: special operation %q", ErrUnknownEvent, op)
		}
		return Special(sop), nil
	}

	for k, name := range eventNames {
		if name == kind && k != EventDigit && k != EventBinaryOperator && k != EventSpecialOperation {
			return Simple(k), nil
		}
	}
	return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
}

// ParseKey maps a keyboard key name to its button equivalent.
func ParseKey(key string) (Event, bool) {
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return Digit(int(key[0] - '0')), true
	}

	switch key {
	case "+", "-", "*", "/":
		op, _ := ParseBinaryOp(key)
		return Operator(op), true
	case ".":
		return Simple(EventDot), true
	case "Delete":
		return Simple(EventClearEntry), true
	case "Backspace":
		return Simple(EventBackspace), true
	case "Enter":
		return Simple(EventEquals), true
	}
	return Event{}, false
}
