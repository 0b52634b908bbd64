package engine

// value is an optional operand. The zero value is unset.
type value struct {
	v   float64
	set bool
}

func some(v float64) value {
	return value{v: v, set: true}
}

// format renders the value, or "0" when unset.
func (x value) format() string {
	if !x.set {
		return "0"
	}
	return FormatNumber(x.v)
}
