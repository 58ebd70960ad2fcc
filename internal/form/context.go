package form

import (
	"fmt"
	"slices"
	"sort"
)

// ValueKind tags the variant stored in a Value.
type ValueKind uint8

const (
	KindString ValueKind = iota + 1
	KindInt
	KindIDs
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindIDs:
		return "ids"
	}
	return "unknown"
}

// Value is a validated answer.
type Value struct {
	Kind ValueKind
	str  string
	num  int
	ids  []int64
}

// String wraps a text answer.
func String(s string) Value { return Value{Kind: KindString, str: s} }

// Int wraps a numeric answer.
func Int(n int) Value { return Value{Kind: KindInt, num: n} }

// IDs wraps a list of identifiers.
func IDs(ids []int64) Value { return Value{Kind: KindIDs, ids: slices.Clone(ids)} }

// MissingFieldError is returned when an answer has not been collected yet.
type MissingFieldError struct {
	Key string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("form: missing field %q", e.Key)
}

// FieldTypeError is returned when an answer is read with the wrong accessor.
type FieldTypeError struct {
	Key  string
	Want ValueKind
	Got  ValueKind
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("form: field %q is %s, not %s", e.Key, e.Got, e.Want)
}

// Context accumulates validated answers keyed by step key.
type Context struct {
	answers map[string]Value
}

// NewContext returns an empty answer store.
func NewContext() *Context {
	return &Context{answers: make(map[string]Value)}
}

// Set stores v under key, replacing any previous answer.
func (c *Context) Set(key string, v Value) {
	c.answers[key] = v
}

// Has reports whether key has an answer.
func (c *Context) Has(key string) bool {
	_, ok := c.answers[key]
	return ok
}

// Keys lists the answered keys in lexical order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.answers))
	for k := range c.answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of answers.
func (c *Context) Len() int {
	return len(c.answers)
}

func (c *Context) lookup(key string, want ValueKind) (Value, error) {
	v, ok := c.answers[key]
	if !ok {
		return Value{}, &MissingFieldError{Key: key}
	}
	if v.Kind != want {
		return Value{}, &FieldTypeError{Key: key, Want: want, Got: v.Kind}
	}
	return v, nil
}

// String reads a text answer.
func (c *Context) String(key string) (string, error) {
	v, err := c.lookup(key, KindString)
	return v.str, err
}

// Int reads a numeric answer.
func (c *Context) Int(key string) (int, error) {
	v, err := c.lookup(key, KindInt)
	return v.num, err
}

// IDs reads an identifier list answer.
func (c *Context) IDs(key string) ([]int64, error) {
	v, err := c.lookup(key, KindIDs)
	return slices.Clone(v.ids), err
}
