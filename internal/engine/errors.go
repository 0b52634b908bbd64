package engine

import "errors"

// ErrUnknownEvent is returned when an event or key name has no mapping.
var ErrUnknownEvent = errors.New("unknown calculator event")

// ErrorKind is the engine's error state. Errors are part of the state, not
// Go errors: every engine call succeeds and reports them through State.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorDivideByZero
	ErrorInvalidDomain
	ErrorOverflow
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorDivideByZero:
		return "divide_by_zero"
	case ErrorInvalidDomain:
		return "invalid_domain"
	case ErrorOverflow:
		return "overflow"
	default:
		return ""
	}
}

// Messages maps error kinds to the text shown in place of the entry.
type Messages map[ErrorKind]string

// DefaultMessages is the English message table.
var DefaultMessages = Messages{
	ErrorDivideByZero:  "Cannot divide by zero",
	ErrorInvalidDomain: "Invalid input",
	ErrorOverflow:      "Overflow",
}

func (m Messages) text(k ErrorKind) string {
	if s, ok := m[k]; ok {
		return s
	}
	return DefaultMessages[k]
}
