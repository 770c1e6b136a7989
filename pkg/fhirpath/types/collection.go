package types

import (
	"fmt"
	"strings"
)

// Collection is the one and only result shape in FHIRPath: every expression
// evaluates to an ordered, possibly-empty sequence of Values. There is no
// separate scalar result type — a "single" result is just a Collection of
// length one, and Empty is represented as a zero-length Collection rather
// than a sentinel nil value.
type Collection []Value

func (c Collection) Empty() bool {
	return len(c) == 0
}

func (c Collection) Count() int {
	return len(c)
}

func (c Collection) First() (Value, bool) {
	if len(c) == 0 {
		return nil, false
	}
	return c[0], true
}

func (c Collection) Last() (Value, bool) {
	if len(c) == 0 {
		return nil, false
	}
	return c[len(c)-1], true
}

// Single unwraps a collection that is required to hold exactly one element,
// reporting the cardinality mismatch as an error rather than panicking —
// callers (e.g. funcs.fnSingle) turn this into an ErrSingletonExpected.
func (c Collection) Single() (Value, error) {
	switch len(c) {
	case 1:
		return c[0], nil
	case 0:
		return nil, fmt.Errorf("expected single value, got empty collection")
	default:
		return nil, fmt.Errorf("expected single value, got %d elements", len(c))
	}
}

func (c Collection) Tail() Collection {
	if len(c) <= 1 {
		return Collection{}
	}
	return c[1:]
}

func (c Collection) Skip(n int) Collection {
	switch {
	case n <= 0:
		return c
	case n >= len(c):
		return Collection{}
	default:
		return c[n:]
	}
}

func (c Collection) Take(n int) Collection {
	switch {
	case n <= 0:
		return Collection{}
	case n >= len(c):
		return c
	default:
		return c[:n]
	}
}

// Contains reports whether any element of c is Equal to v — the basis for
// Distinct/Union/Intersect/Exclude, all of which are defined in terms of =
// rather than ~.
func (c Collection) Contains(v Value) bool {
	for _, item := range c {
		if item.Equal(v) {
			return true
		}
	}
	return false
}

// Distinct keeps first occurrences only, preserving order.
func (c Collection) Distinct() Collection {
	if len(c) <= 1 {
		return c
	}
	out := make(Collection, 0, len(c))
	for _, item := range c {
		if !out.Contains(item) {
			out = append(out, item)
		}
	}
	return out
}

func (c Collection) IsDistinct() bool {
	return len(c) == len(c.Distinct())
}

// Union appends other's elements that aren't already present, deduplicating
// the result the way Distinct does.
func (c Collection) Union(other Collection) Collection {
	out := make(Collection, 0, len(c)+len(other))
	out = append(out, c...)
	for _, item := range other {
		if !out.Contains(item) {
			out = append(out, item)
		}
	}
	return out
}

// Combine is Union without the dedup step: a straight concatenation.
func (c Collection) Combine(other Collection) Collection {
	out := make(Collection, 0, len(c)+len(other))
	out = append(out, c...)
	out = append(out, other...)
	return out
}

func (c Collection) Intersect(other Collection) Collection {
	out := make(Collection, 0)
	for _, item := range c {
		if other.Contains(item) && !out.Contains(item) {
			out = append(out, item)
		}
	}
	return out
}

func (c Collection) Exclude(other Collection) Collection {
	out := make(Collection, 0)
	for _, item := range c {
		if !other.Contains(item) {
			out = append(out, item)
		}
	}
	return out
}

func (c Collection) String() string {
	if len(c) == 0 {
		return "[]"
	}
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ToBoolean requires a singleton Boolean collection, which is the shape
// FHIRPath's implicit boolean conversion (e.g. in where()/iif() criteria)
// demands — anything else is an error, never a silent false.
func (c Collection) ToBoolean() (bool, error) {
	switch {
	case len(c) == 0:
		return false, fmt.Errorf("cannot convert empty collection to boolean")
	case len(c) > 1:
		return false, fmt.Errorf("cannot convert collection with %d elements to boolean", len(c))
	}
	b, ok := c[0].(Boolean)
	if !ok {
		return false, fmt.Errorf("cannot convert %s to boolean", c[0].Type())
	}
	return b.Bool(), nil
}

func (c Collection) AllTrue() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); !ok || !b.Bool() {
			return false
		}
	}
	return true
}

func (c Collection) AnyTrue() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); ok && b.Bool() {
			return true
		}
	}
	return false
}

func (c Collection) AllFalse() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); !ok || b.Bool() {
			return false
		}
	}
	return true
}

func (c Collection) AnyFalse() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); ok && !b.Bool() {
			return true
		}
	}
	return false
}
