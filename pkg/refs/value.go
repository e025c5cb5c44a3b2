// Package refs implements named pointers to objects. A ref resolves either
// directly to an object hash or, through one or more symbolic hops, to
// another ref.
package refs

import (
	"strings"

	"github.com/odvcencio/tinygot/pkg/object"
)

// Kind discriminates the three states of a Value.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindDirect
	KindSymbolic
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindSymbolic:
		return "symbolic"
	default:
		return "absent"
	}
}

// symbolicPrefix marks a symbolic ref on disk.
const symbolicPrefix = "ref:"

// Value is the content of a ref. The zero Value is Absent.
type Value struct {
	kind    Kind
	payload string
}

// Direct returns a Value pointing at an object.
func Direct(h object.Hash) Value {
	return Value{kind: KindDirect, payload: string(h)}
}

// Symbolic returns a Value pointing at another ref.
func Symbolic(target string) Value {
	return Value{kind: KindSymbolic, payload: target}
}

// Absent returns the Value of a ref with no stored content.
func Absent() Value {
	return Value{}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

func (v Value) IsSymbolic() bool { return v.kind == KindSymbolic }

// Hash returns the object hash of a direct Value, or "" otherwise.
func (v Value) Hash() object.Hash {
	if v.kind != KindDirect {
		return ""
	}
	return object.Hash(v.payload)
}

// Target returns the ref name of a symbolic Value, or "" otherwise.
func (v Value) Target() string {
	if v.kind != KindSymbolic {
		return ""
	}
	return v.payload
}

// String renders v the way it is stored on disk.
func (v Value) String() string {
	switch v.kind {
	case KindDirect:
		return v.payload
	case KindSymbolic:
		return symbolicPrefix + " " + v.payload
	default:
		return ""
	}
}

// Parse decodes ref file content. Surrounding whitespace is ignored, and
// empty content decodes to Absent.
func Parse(content string) Value {
	content = strings.TrimSpace(content)
	if content == "" {
		return Absent()
	}
	if target, ok := strings.CutPrefix(content, symbolicPrefix); ok {
		target = strings.TrimSpace(target)
		if target == "" {
			return Absent()
		}
		return Symbolic(target)
	}
	return Direct(object.Hash(content))
}

// Ref is a named Value as produced by Store.Iter.
type Ref struct {
	Name  string
	Value Value
}
