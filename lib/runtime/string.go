package runtime

import (
	"unicode/utf8"
)

// DefaultMaxStringLength is the capacity of a String in characters.
const DefaultMaxStringLength = 10000

// String is java.lang.String: an immutable, bounded run of characters.
// Equality is by content. It is safe to share between threads.
type String struct {
	Header
	rt    *Runtime
	chars []rune
	text  string
}

// NewString copies src into a new String. Content longer than the
// runtime's maximum string length fails with ErrOverflow.
func (r *Runtime) NewString(src string) (*String, error) {
	n := utf8.RuneCountInString(src)
	if err := r.checkStringLength("String.<init>", n); err != nil {
		return nil, err
	}
	return r.newString([]rune(src), src), nil
}

// newStringFromRunes copies chars into a new String.
func (r *Runtime) newStringFromRunes(op string, chars []rune) (*String, error) {
	if err := r.checkStringLength(op, len(chars)); err != nil {
		return nil, err
	}
	owned := make([]rune, len(chars))
	copy(owned, chars)
	return r.newString(owned, string(owned)), nil
}

func (r *Runtime) newString(chars []rune, text string) *String {
	s := &String{rt: r, chars: chars, text: text}
	mustConstruct(s, r.StringClass)
	return s
}

func (r *Runtime) checkStringLength(op string, n int) error {
	if limit := r.cfg.MaxStringLength; limit > 0 && n > limit {
		return overflowError(op, n, limit)
	}
	return nil
}

// StringConstant returns the interned String for a literal. The same
// literal always yields the same instance. A literal too long for a
// String is a compiler defect and panics with an overflow error.
func (r *Runtime) StringConstant(lit string) *String {
	if s, ok := r.constants.Load(lit); ok {
		return s.(*String)
	}
	s, err := r.NewString(lit)
	if err != nil {
		panic(err)
	}
	actual, _ := r.constants.LoadOrStore(lit, s)
	return actual.(*String)
}

// nullString is the interned rendering of null. It is exempt from the
// length limit so null renders under any configured maximum.
func (r *Runtime) nullString() *String {
	if s, ok := r.constants.Load("null"); ok {
		return s.(*String)
	}
	actual, _ := r.constants.LoadOrStore("null", r.newString([]rune("null"), "null"))
	return actual.(*String)
}

// ToString returns the receiver.
func (s *String) ToString() *String {
	return s
}

// Length returns the number of characters.
func (s *String) Length() int {
	return len(s.chars)
}

// CharAt returns the character at index, or ErrBounds outside [0, Length()).
func (s *String) CharAt(index int) (rune, error) {
	if index < 0 || index >= len(s.chars) {
		return 0, boundsError("String.charAt", index, len(s.chars))
	}
	return s.chars[index], nil
}

// ContentEquals compares this string's characters with the dispatched
// textual rendering of other. It does not require other to be a String.
func (s *String) ContentEquals(other Object) (bool, error) {
	if other == nil {
		return false, nil
	}
	rendered, err := s.rt.RenderObject(other)
	if err != nil {
		return false, err
	}
	if len(rendered.chars) != len(s.chars) {
		return false, nil
	}
	for i, c := range s.chars {
		if rendered.chars[i] != c {
			return false, nil
		}
	}
	return true, nil
}

// HashCode is Java's s[0]*31^(n-1) + ... + s[n-1] with int overflow.
func (s *String) HashCode() int32 {
	var h int32
	for _, c := range s.chars {
		h = 31*h + int32(c)
	}
	return h
}

// Concat returns a new String holding s followed by other.
func (s *String) Concat(other *String) (*String, error) {
	if other == nil || len(other.chars) == 0 {
		return s, nil
	}
	chars := make([]rune, 0, len(s.chars)+len(other.chars))
	chars = append(chars, s.chars...)
	chars = append(chars, other.chars...)
	return s.rt.newStringFromRunes("String.concat", chars)
}

// String returns the content as a Go string.
func (s *String) String() string {
	return s.text
}

func registerStringClass(r *Runtime) *Class {
	return r.Classes.mustDefine("java.lang.String", nil, func(mt *MethodTable) {
		mt.AddMethod(SelEquals, 1, func(self Object, args []Value) (Value, error) {
			eq, err := self.(*String).ContentEquals(args[0].AsObject())
			return BoolValue(eq), err
		})

		mt.AddMethod(SelToString, 0, func(self Object, args []Value) (Value, error) {
			return ObjectValue(self), nil
		})

		mt.AddMethod(SelCharAt, 1, func(self Object, args []Value) (Value, error) {
			c, err := self.(*String).CharAt(int(args[0].AsInt()))
			if err != nil {
				return NilValue(), err
			}
			return CharValue(c), nil
		})

		mt.AddMethod(SelLength, 0, func(self Object, args []Value) (Value, error) {
			return IntValue(int32(self.(*String).Length())), nil
		})

		mt.AddMethod(SelHashCode, 0, func(self Object, args []Value) (Value, error) {
			return IntValue(self.(*String).HashCode()), nil
		})
	})
}
