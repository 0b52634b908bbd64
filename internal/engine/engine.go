// Package engine implements the calculator state machine: entry text,
// pending binary and special operations, the last result and the error
// state, driven one input event at a time.
//
// An Engine is not safe for concurrent use. Hosts must deliver events from a
// single goroutine or serialize them (see package session).
package engine

import (
	"math"
	"strconv"
	"strings"
)

// maxEntryDigits bounds the characters typed into the entry, not counting a
// decimal point or a leading minus.
const maxEntryDigits = 13

// State is what the host renders after every event.
type State struct {
	Entry           string
	Formula         string
	ControlsEnabled bool
	Error           ErrorKind
}

// Option configures an Engine.
type Option func(*Engine)

// WithMessages replaces the error message table used when rendering State.
func WithMessages(m Messages) Option {
	return func(e *Engine) {
		e.messages = m
	}
}

// Engine is the calculator state machine.
type Engine struct {
	entry   string
	formula string

	first  value
	second value
	result value

	pending BinaryOp
	special SpecialOp
	err     ErrorKind

	clearOnNextDigit bool
	enabled          bool

	messages Messages
}

// New returns an engine showing "0" with nothing pending.
func New(opts ...Option) *Engine {
	e := &Engine{
		messages: DefaultMessages,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset()
	return e
}

// Reset returns the engine to its initial state.
func (e *Engine) Reset() State {
	e.entry = "0"
	e.clearFormula()
	e.first, e.second, e.result = value{}, value{}, value{}
	e.special = SpecialNone
	e.err = ErrorNone
	e.clearOnNextDigit = false
	e.enabled = true
	return e.State()
}

// State returns the current rendering without changing anything.
func (e *Engine) State() State {
	entry := e.entry
	if e.err != ErrorNone {
		entry = e.messages.text(e.err)
	}
	return State{
		Entry:           entry,
		Formula:         e.formula,
		ControlsEnabled: e.enabled,
		Error:           e.err,
	}
}

// Apply dispatches ev to the matching handler.
func (e *Engine) Apply(ev Event) State {
	switch ev.Kind {
	case EventDigit:
		return e.OnDigit(ev.Digit)
	case EventDot:
		return e.OnDot()
	case EventToggleSign:
		return e.OnToggleSign()
	case EventClear:
		return e.OnClear()
	case EventClearEntry:
		return e.OnClearEntry()
	case EventBackspace:
		return e.OnBackspace()
	case EventBinaryOperator:
		return e.OnBinaryOperator(ev.Op)
	case EventSpecialOperation:
		return e.OnSpecialOperation(ev.Special)
	case EventEquals:
		return e.OnEquals()
	}
	return e.State()
}

// OnDigit types d into the entry.
func (e *Engine) OnDigit(d int) State {
	if d < 0 || d > 9 {
		return e.State()
	}
	e.enable()

	// The first digit after a finalized result starts a new number, once.
	if e.showsResult() && !e.clearOnNextDigit {
		e.entry = "0"
		e.clearOnNextDigit = true
	}

	limit := maxEntryDigits
	if strings.Contains(e.entry, ".") {
		limit++
	}
	if strings.HasPrefix(e.entry, "-") {
		limit++
	}
	if len(e.entry) >= limit {
		return e.State()
	}

	if e.entry == "0" {
		e.entry = strconv.Itoa(d)
	} else {
		e.entry += strconv.Itoa(d)
	}
	return e.State()
}

// OnDot appends a decimal point unless the entry already has one.
func (e *Engine) OnDot() State {
	if !e.enabled {
		return e.State()
	}
	if !strings.Contains(e.entry, ".") {
		e.entry += "."
	}
	return e.State()
}

// OnToggleSign negates a nonzero entry.
func (e *Engine) OnToggleSign() State {
	if !e.enabled {
		return e.State()
	}
	if v := parseEntry(e.entry); v != 0 {
		e.entry = FormatNumber(-v)
	}
	return e.State()
}

// OnClear resets the entry and the formula. Operands and the last result
// are kept.
func (e *Engine) OnClear() State {
	e.enable()
	e.entry = "0"
	e.clearFormula()
	return e.State()
}

// OnClearEntry resets the entry, and the formula too once it has been
// finalized with "=".
func (e *Engine) OnClearEntry() State {
	e.enable()
	e.entry = "0"
	if strings.Contains(e.formula, "=") {
		e.clearFormula()
	}
	return e.State()
}

// OnBackspace removes the last typed character.
func (e *Engine) OnBackspace() State {
	e.enable()
	if len(e.entry) <= 1 {
		e.entry = "0"
	} else {
		e.entry = e.entry[:len(e.entry)-1]
	}
	e.entry = normalize(e.entry)
	return e.State()
}

// OnBinaryOperator starts or continues a chained binary computation.
func (e *Engine) OnBinaryOperator(op BinaryOp) State {
	if !e.enabled || op == OpNone {
		return e.State()
	}
	e.clearOnNextDigit = false

	v := parseEntry(e.entry)
	switch {
	case e.showsResult():
		e.first = e.result
	case e.formula != "":
		e.second = some(v)
		if !e.applyPending() {
			return e.State()
		}
	default:
		e.first = some(v)
	}

	e.pending = op
	e.formula = e.first.format() + " " + op.Symbol()
	e.entry = "0"
	return e.State()
}

// OnSpecialOperation applies a unary operation to the entry and evaluates
// immediately.
func (e *Engine) OnSpecialOperation(op SpecialOp) State {
	if !e.enabled {
		return e.State()
	}

	v := parseEntry(e.entry)
	var r float64
	switch op {
	case SpecialSquare:
		r = v * v
	case SpecialSqrt:
		if v < 0 {
			e.fail(ErrorInvalidDomain)
			return e.State()
		}
		r = math.Sqrt(v)
	case SpecialReciprocal:
		if v == 0 {
			e.fail(ErrorDivideByZero)
			return e.State()
		}
		r = 1 / v
	case SpecialPercent:
		if e.first.set {
			r = e.first.v * v / 100
		}
	default:
		return e.State()
	}

	r, kind := checkFinite(r)
	if kind != ErrorNone {
		e.fail(kind)
		return e.State()
	}

	e.entry = FormatNumber(r)
	e.special = op
	// The operand is kept so the formula can show "op(operand)".
	e.result = some(v)
	// Not routed through OnEquals: its guard would leave sqr(1) pending.
	e.evaluate()
	return e.State()
}

// OnEquals finalizes the pending computation, or replays a pending special
// operation into the formula.
func (e *Engine) OnEquals() State {
	e.enable()

	if e.entry != "0" && e.showsResult() {
		return e.State()
	}
	e.evaluate()
	return e.State()
}

// evaluate reads the entry as the right operand and finalizes the pending
// binary operation, or renders a pending special operation on its own.
func (e *Engine) evaluate() {
	e.second = some(parseEntry(e.entry))

	switch {
	case e.formula != "" && !strings.Contains(e.formula, "="):
		base := e.first
		if !e.applyPending() {
			return
		}
		if e.special != SpecialNone {
			e.formula += " " + e.renderSpecial(base)
		} else {
			e.formula += " " + e.second.format() + " ="
		}
		e.result = e.first
		e.entry = e.result.format()
		e.special = SpecialNone
		e.clearOnNextDigit = false
	case e.special != SpecialNone:
		e.setFormula(e.renderSpecial(e.first))
		e.special = SpecialNone
		e.result = e.second
		e.clearOnNextDigit = false
	}
}

// applyPending folds second into first with the pending operator. It
// reports false when the engine moved into an error state.
func (e *Engine) applyPending() bool {
	op := e.pending
	if !e.first.set {
		op = OpNone
	}
	r, kind := op.apply(e.first.v, e.second.v)
	if kind != ErrorNone {
		e.fail(kind)
		return false
	}
	e.first = some(r)
	return true
}

// renderSpecial formats the pending special operation for the formula. base
// is the left operand a percentage was taken of.
func (e *Engine) renderSpecial(base value) string {
	if e.special == SpecialPercent {
		return "(" + base.format() + ") × " + e.result.format() + "% ="
	}
	return e.special.render(e.result.format()) + " ="
}

// showsResult reports whether the entry is the last result as displayed.
// The stored result may carry more precision than the display.
func (e *Engine) showsResult() bool {
	return e.result.set && e.entry == e.result.format()
}

// setFormula replaces the formula with one that has no pending operator.
func (e *Engine) setFormula(f string) {
	e.formula = f
	e.pending = OpNone
}

func (e *Engine) clearFormula() {
	e.setFormula("")
}

// fail moves the engine into the error state k.
func (e *Engine) fail(k ErrorKind) {
	e.first, e.second, e.result = value{}, value{}, value{}
	e.special = SpecialNone
	e.err = k
	e.enabled = false
	e.entry = "0"
	e.clearFormula()
}

// enable leaves the error state. The entry restarts at "0" the first time.
func (e *Engine) enable() {
	if e.enabled {
		return
	}
	e.enabled = true
	e.err = ErrorNone
	e.entry = "0"
}
