// Package value implements the dynamic tagged value that flows through
// trace-variable contexts: spec.md §3/§4.3's Variable sum type over
// {Null, Boolean, Integer, Real, String, Array}, its explicit coercions, and
// the static type-priority rule used to resolve binary operators.
//
// Arrays are represented as a [Mapping] rather than a concrete map, because
// spec.md §3 requires "Arrays are implemented AS contexts" — the trace
// variable scope graph that backs them lives one layer up, in the tracenet
// package, and would create an import cycle if referenced directly here.
package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sentinel coercion/operator errors (spec.md §7).
var (
	ErrBadCast              = errors.New("value: bad cast")
	ErrDivisionByZero       = errors.New("value: division by zero")
	ErrIncomparableOperands = errors.New("value: incomparable operands")
)

// Kind tags the dynamic type carried by a Variable.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Int
	Real
	String
	Array
	// Dynamic is never stored in a Variable; it stands for "resolve the
	// operand's own tag at runtime" in [PriorityCast].
	Dynamic
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Real:
		return "real"
	case String:
		return "string"
	case Array:
		return "array"
	case Dynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// priority implements the static type ordering used by [PriorityCast]:
// Null < Array < Int < Real < Bool < String < Dynamic.
func (k Kind) priority() int {
	switch k {
	case Null:
		return 0
	case Array:
		return 1
	case Int:
		return 2
	case Real:
		return 3
	case Bool:
		return 4
	case String:
		return 5
	default: // Dynamic
		return 6
	}
}

// Entry is a single key/value pair exposed by a [Mapping], in the order the
// key was first defined.
type Entry struct {
	Key   string
	Value Variable
}

// Mapping is the behavior an Array-kind Variable's backing store must
// provide. tracenet.Context implements this interface; this package only
// ever consumes it.
type Mapping interface {
	// Ref returns a mutable reference to key, auto-creating it if absent.
	Ref(key string) *Variable
	// Val returns the value of key without creating it.
	Val(key string) Variable
	// Entries returns all currently-defined keys in order of first
	// definition.
	Entries() []Entry
}

// Variable is a dynamically-tagged value: the sum type of spec.md §3.
//
// The zero Variable is Null.
type Variable struct {
	kind Kind
	b    bool
	i    int64
	r    float64
	s    string
	arr  Mapping
}

// Nil returns the Null variable.
func Nil() Variable { return Variable{} }

// OfBool wraps a bool as a Variable.
func OfBool(b bool) Variable { return Variable{kind: Bool, b: b} }

// OfInt wraps an int64 as a Variable.
func OfInt(i int64) Variable { return Variable{kind: Int, i: i} }

// OfReal wraps a float64 as a Variable.
func OfReal(r float64) Variable { return Variable{kind: Real, r: r} }

// OfString wraps a string as a Variable.
func OfString(s string) Variable { return Variable{kind: String, s: s} }

// OfArray wraps a Mapping as a Variable.
func OfArray(m Mapping) Variable { return Variable{kind: Array, arr: m} }

// Kind returns the dynamic type tag of v.
func (v Variable) Kind() Kind { return v.kind }

// Mapping returns the backing Mapping of an Array-kind Variable, or nil for
// any other kind.
func (v Variable) Mapping() Mapping { return v.arr }

// AsBool coerces v to a bool (spec.md §4.3).
func (v Variable) AsBool() (bool, error) {
	switch v.kind {
	case Null:
		return false, nil
	case Bool:
		return v.b, nil
	case Int:
		return v.i != 0, nil
	case Real:
		return v.r != 0, nil
	case String:
		switch strings.ToLower(v.s) {
		case "", "0", "no", "false", "f", "n":
			return false, nil
		case "1", "yes", "true", "t", "y":
			return true, nil
		default:
			return false, fmt.Errorf("%w: cannot interpret %q as bool", ErrBadCast, v.s)
		}
	default:
		return false, fmt.Errorf("%w: cannot cast %v to bool", ErrBadCast, v.kind)
	}
}

// AsInt coerces v to an int64 (spec.md §4.3).
func (v Variable) AsInt() (int64, error) {
	switch v.kind {
	case Null:
		return 0, nil
	case Bool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case Int:
		return v.i, nil
	case Real:
		return int64(v.r), nil // truncate toward zero, as int64() does
	case String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: cannot interpret %q as int: %v", ErrBadCast, v.s, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: cannot cast %v to int", ErrBadCast, v.kind)
	}
}

// AsReal coerces v to a float64 (spec.md §4.3).
func (v Variable) AsReal() (float64, error) {
	switch v.kind {
	case Null:
		return 0, nil
	case Bool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case Int:
		return float64(v.i), nil
	case Real:
		return v.r, nil
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: cannot interpret %q as real: %v", ErrBadCast, v.s, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: cannot cast %v to real", ErrBadCast, v.kind)
	}
}

// AsString coerces v to a string (spec.md §4.3). Reals render in scientific
// notation with six significant digits; arrays render in the list format of
// spec.md §4.3 ("Array listing").
func (v Variable) AsString() (string, error) {
	switch v.kind {
	case Null:
		return "", nil
	case Bool:
		if v.b {
			return "true", nil
		}
		return "false", nil
	case Int:
		return strconv.FormatInt(v.i, 10), nil
	case Real:
		return strconv.FormatFloat(v.r, 'e', 5, 64), nil
	case String:
		return v.s, nil
	case Array:
		return FormatArray(v.arr), nil
	default:
		return "", fmt.Errorf("%w: cannot cast %v to string", ErrBadCast, v.kind)
	}
}

// AsArray coerces v to an Array-kind Variable (spec.md §4.3): Null becomes
// an empty array, Array is returned unchanged, and any scalar becomes a new
// array whose "" key maps to the scalar.
func (v Variable) AsArray() (Variable, error) {
	switch v.kind {
	case Null:
		return OfArray(staticEntries(nil)), nil
	case Array:
		return v, nil
	default:
		return OfArray(staticEntries{{Key: "", Value: v}}), nil
	}
}

// FormatArray renders m in the Array listing format of spec.md §4.3:
// "{k1: v1, k2: v2, ...}", keys in order of first definition, the "" key
// omitted, string values quoted and escaped.
func FormatArray(m Mapping) string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	if m != nil {
		for _, e := range m.Entries() {
			if e.Key == "" {
				continue
			}
			if !first {
				b.WriteString(", ")
			}
			first = false
			b.WriteString(e.Key)
			b.WriteString(": ")
			b.WriteString(formatScalar(e.Value))
		}
	}
	b.WriteByte('}')
	return b.String()
}

func formatScalar(v Variable) string {
	if v.kind == String {
		return strconv.Quote(v.s)
	}
	s, err := v.AsString()
	if err != nil {
		return "?"
	}
	return s
}

// staticEntries is a fixed-key Mapping used to represent the synthetic
// arrays produced by AsArray; it is never the backing store of a live trace
// Context. Ref of a key it does not hold returns a detached Null that is not
// added to it.
type staticEntries []Entry

func (s staticEntries) Ref(key string) *Variable {
	for i := range s {
		if s[i].Key == key {
			return &s[i].Value
		}
	}
	v := Nil()
	return &v
}

func (s staticEntries) Val(key string) Variable {
	for _, e := range s {
		if e.Key == key {
			return e.Value
		}
	}
	return Nil()
}

func (s staticEntries) Entries() []Entry { return s }

// PriorityCast resolves two operands to a common type for a binary
// operator, per spec.md §4.3's priority_cast: the lower-priority operand is
// coerced up to the higher-priority operand's type.
func PriorityCast(a, b Variable) (Variable, Variable, error) {
	pa, pb := a.kind.priority(), b.kind.priority()
	switch {
	case pa == pb:
		return a, b, nil
	case pa < pb:
		c, err := a.coerceTo(b.kind)
		if err != nil {
			return Variable{}, Variable{}, err
		}
		return c, b, nil
	default:
		c, err := b.coerceTo(a.kind)
		if err != nil {
			return Variable{}, Variable{}, err
		}
		return a, c, nil
	}
}

func (v Variable) coerceTo(k Kind) (Variable, error) {
	switch k {
	case Null:
		return Nil(), nil
	case Bool:
		b, err := v.AsBool()
		return OfBool(b), err
	case Int:
		i, err := v.AsInt()
		return OfInt(i), err
	case Real:
		r, err := v.AsReal()
		return OfReal(r), err
	case String:
		s, err := v.AsString()
		return OfString(s), err
	case Array:
		return v.AsArray()
	default:
		return v, nil
	}
}

// Mod implements the % operator: it requires integer or real operands
// (after priority_cast) and raises ErrDivisionByZero if the divisor is 0.
func Mod(a, b Variable) (Variable, error) {
	ca, cb, err := PriorityCast(a, b)
	if err != nil {
		return Variable{}, err
	}
	switch ca.kind {
	case Int:
		if cb.i == 0 {
			return Variable{}, fmt.Errorf("%w: %% by zero", ErrDivisionByZero)
		}
		return OfInt(ca.i % cb.i), nil
	case Real:
		if cb.r == 0 {
			return Variable{}, fmt.Errorf("%w: %% by zero", ErrDivisionByZero)
		}
		return OfReal(math.Mod(ca.r, cb.r)), nil
	default:
		return Variable{}, fmt.Errorf("%w: %% requires integer or real operands, got %v", ErrBadCast, ca.kind)
	}
}

// Compare orders a and b, per spec.md §4.3, raising ErrIncomparableOperands
// for operand types that cannot be ordered (after priority_cast).
func Compare(a, b Variable) (int, error) {
	ca, cb, err := PriorityCast(a, b)
	if err != nil {
		return 0, err
	}
	switch ca.kind {
	case Null:
		return 0, nil
	case Bool:
		switch {
		case ca.b == cb.b:
			return 0, nil
		case !ca.b:
			return -1, nil
		default:
			return 1, nil
		}
	case Int:
		switch {
		case ca.i < cb.i:
			return -1, nil
		case ca.i > cb.i:
			return 1, nil
		default:
			return 0, nil
		}
	case Real:
		switch {
		case ca.r < cb.r:
			return -1, nil
		case ca.r > cb.r:
			return 1, nil
		default:
			return 0, nil
		}
	case String:
		return strings.Compare(ca.s, cb.s), nil
	default:
		return 0, fmt.Errorf("%w: cannot compare %v and %v", ErrIncomparableOperands, a.kind, b.kind)
	}
}
