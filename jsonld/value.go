// Package jsonld models a parsed JSON-LD document as a tree of tagged
// values. Objects keep their key order so that anything derived from a
// document (issues, fixes, serialised output) is deterministic.
package jsonld

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is one node of a JSON tree. The zero value is JSON null.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []*Value
	obj  *Object
}

// Object is a JSON object with insertion-ordered keys. Read methods treat
// a nil *Object as empty.
type Object struct {
	keys []string
	vals map[string]*Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]*Value)}
}

// Null returns a JSON null value.
func Null() *Value { return &Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) *Value { return &Value{kind: KindBool, b: b} }

// Number wraps a JSON number literal.
func Number(n json.Number) *Value { return &Value{kind: KindNumber, num: n} }

// String wraps a string.
func String(s string) *Value { return &Value{kind: KindString, str: s} }

// Array wraps a list of values.
func Array(items ...*Value) *Value {
	if items == nil {
		items = []*Value{}
	}
	return &Value{kind: KindArray, arr: items}
}

// ObjectValue wraps an object.
func ObjectValue(o *Object) *Value {
	if o == nil {
		o = NewObject()
	}
	return &Value{kind: KindObject, obj: o}
}

// Kind reports the variant held by v. A nil Value is null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsObject reports whether v holds an object.
func (v *Value) IsObject() bool { return v.Kind() == KindObject }

// AsObject returns the object held by v, or nil.
func (v *Value) AsObject() *Object {
	if v.Kind() != KindObject {
		return nil
	}
	return v.obj
}

// AsArray returns the items held by v, or nil.
func (v *Value) AsArray() []*Value {
	if v.Kind() != KindArray {
		return nil
	}
	return v.arr
}

// AsString returns the string held by v.
func (v *Value) AsString() (string, bool) {
	if v.Kind() != KindString {
		return "", false
	}
	return v.str, true
}

// AsBool returns the boolean held by v.
func (v *Value) AsBool() (bool, bool) {
	if v.Kind() != KindBool {
		return false, false
	}
	return v.b, true
}

// AsNumber returns the number literal held by v.
func (v *Value) AsNumber() (json.Number, bool) {
	if v.Kind() != KindNumber {
		return "", false
	}
	return v.num, true
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order. The slice must not be modified.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (*Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	if o == nil {
		return false
	}
	_, ok := o.vals[key]
	return ok
}

// GetString returns the string stored under key, or "" when the key is
// absent or not a string.
func (o *Object) GetString(key string) string {
	v, ok := o.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

// GetObject returns the object stored under key, or nil.
func (o *Object) GetObject(key string) *Object {
	v, ok := o.Get(key)
	if !ok {
		return nil
	}
	return v.AsObject()
}

// Set stores v under key. Replacing an existing key keeps its position.
func (o *Object) Set(key string, v *Value) {
	if v == nil {
		v = Null()
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete removes key if present.
func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := &Value{kind: v.kind, b: v.b, num: v.num, str: v.str}
	switch v.kind {
	case KindArray:
		c.arr = make([]*Value, len(v.arr))
		for i, item := range v.arr {
			c.arr[i] = item.Clone()
		}
	case KindObject:
		c.obj = v.obj.Clone()
	}
	return c
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := &Object{
		keys: make([]string, len(o.keys)),
		vals: make(map[string]*Value, len(o.vals)),
	}
	copy(c.keys, o.keys)
	for k, v := range o.vals {
		c.vals[k] = v.Clone()
	}
	return c
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// Parse decodes exactly one JSON value from data.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("unexpected end of JSON input")
		}
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected data after top-level value at offset %d", dec.InputOffset())
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string at offset %d", dec.InputOffset())
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return ObjectValue(obj), nil
		case '[':
			items := []*Value{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return Array(items...), nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q at offset %d", t, dec.InputOffset())
		}
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// UnmarshalJSON implements json.Unmarshaler so Values can sit inside
// ordinary structs and slices.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = *parsed
	return nil
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// MarshalJSON encodes v compactly with object keys in insertion order.
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Indent encodes v with two-space indentation.
func (v *Value) Indent() (string, error) {
	compact, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

func (v *Value) encode(buf *bytes.Buffer) error {
	switch v.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		if v.num == "" {
			buf.WriteString("0")
		} else {
			buf.WriteString(v.num.String())
		}
	case KindString:
		return encodeString(buf, v.str)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.obj.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := v.obj.vals[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// encodeString writes s as a JSON string without HTML escaping, so URLs
// and ampersands in names stay readable in the emitted markup.
func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
