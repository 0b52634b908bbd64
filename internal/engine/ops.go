package engine

import "math"

// BinaryOp is a pending two-operand operation.
type BinaryOp int

const (
	OpNone BinaryOp = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
)

var binarySymbols = map[BinaryOp]string{
	OpAdd:      "+",
	OpSubtract: "-",
	OpMultiply: "×",
	OpDivide:   "÷",
}

// Symbol returns the glyph used in the formula display.
func (op BinaryOp) Symbol() string {
	return binarySymbols[op]
}

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpMultiply:
		return "multiply"
	case OpDivide:
		return "divide"
	default:
		return "none"
	}
}

// ParseBinaryOp accepts either the display glyph or the ASCII keyboard
// spelling ("*" and "/").
func ParseBinaryOp(s string) (BinaryOp, bool) {
	switch s {
	case "+", "add":
		return OpAdd, true
	case "-", "subtract":
		return OpSubtract, true
	case "×", "*", "multiply":
		return OpMultiply, true
	case "÷", "/", "divide":
		return OpDivide, true
	}
	return OpNone, false
}

// apply computes a op b. With OpNone the right operand replaces the left.
func (op BinaryOp) apply(a, b float64) (float64, ErrorKind) {
	var r float64
	switch op {
	case OpAdd:
		r = a + b
	case OpSubtract:
		r = a - b
	case OpMultiply:
		r = a * b
	case OpDivide:
		if b == 0 {
			return 0, ErrorDivideByZero
		}
		r = a / b
	default:
		r = b
	}
	return checkFinite(r)
}

// SpecialOp is a unary operation applied to the entry.
type SpecialOp int

const (
	SpecialNone SpecialOp = iota
	SpecialSquare
	SpecialSqrt
	SpecialReciprocal
	SpecialPercent
)

func (op SpecialOp) String() string {
	switch op {
	case SpecialSquare:
		return "square"
	case SpecialSqrt:
		return "sqrt"
	case SpecialReciprocal:
		return "reciprocal"
	case SpecialPercent:
		return "percent"
	default:
		return "none"
	}
}

// ParseSpecialOp maps a special operation name to its value.
func ParseSpecialOp(s string) (SpecialOp, bool) {
	switch s {
	case "square", "sqr":
		return SpecialSquare, true
	case "sqrt", "√":
		return SpecialSqrt, true
	case "reciprocal", "1/x":
		return SpecialReciprocal, true
	case "percent", "%":
		return SpecialPercent, true
	}
	return SpecialNone, false
}

// render formats the special operation applied to x for the formula display.
func (op SpecialOp) render(x string) string {
	switch op {
	case SpecialSquare:
		return "sqr(" + x + ")"
	case SpecialSqrt:
		return "√(" + x + ")"
	case SpecialReciprocal:
		return "1/(" + x + ")"
	default:
		return x
	}
}

func checkFinite(v float64) (float64, ErrorKind) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrorOverflow
	}
	return v, ErrorNone
}
