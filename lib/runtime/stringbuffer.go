package runtime

import (
	"math"
	"strconv"

	"github.com/sasha-s/go-deadlock"
)

const (
	// DefaultBufferCapacity is the initial capacity of a StringBuffer.
	DefaultBufferCapacity = 1024

	// DefaultMaxBufferCapacity bounds buffer growth, as Java's int-indexed arrays do.
	DefaultMaxBufferCapacity = math.MaxInt32
)

// StringBuffer is java.lang.StringBuffer: a growable character buffer
// whose operations are mutually exclusive.
//
// Append methods return the receiver so calls chain. The first growth
// failure is sticky: later appends do nothing, Err reports it and
// ToString returns it.
type StringBuffer struct {
	Header
	rt       *Runtime
	mu       deadlock.Mutex
	buf      []rune
	length   int
	capacity int
	err      error
}

// NewStringBuffer creates an empty buffer with the configured initial capacity.
func (r *Runtime) NewStringBuffer() *StringBuffer {
	capacity := r.cfg.BufferInitialCapacity
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	sb := &StringBuffer{
		rt:       r,
		buf:      make([]rune, capacity),
		capacity: capacity,
	}
	mustConstruct(sb, r.StringBufferClass)
	return sb
}

// NewStringBufferFrom creates a buffer holding the content of s.
func (r *Runtime) NewStringBufferFrom(s *String) *StringBuffer {
	sb := r.NewStringBuffer()
	if s != nil {
		sb.AppendString(s)
	}
	return sb
}

// AppendObject appends the dispatched toString() of obj ("null" for nil).
// A failing toString() is returned to the caller and leaves the buffer
// unchanged and usable.
func (sb *StringBuffer) AppendObject(obj Object) (*StringBuffer, error) {
	s, err := sb.rt.RenderObject(obj)
	if err != nil {
		return sb, err
	}
	return sb.AppendString(s), nil
}

// AppendString appends the characters of s ("null" for nil).
func (sb *StringBuffer) AppendString(s *String) *StringBuffer {
	if s == nil {
		s = sb.rt.nullString()
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.appendLocked("StringBuffer.append", s.chars)
	return sb
}

// AppendInt appends the base-10 form of a Java int.
func (sb *StringBuffer) AppendInt(i int32) *StringBuffer {
	return sb.appendText(strconv.FormatInt(int64(i), 10))
}

// AppendLong appends the base-10 form of a Java long.
func (sb *StringBuffer) AppendLong(l int64) *StringBuffer {
	return sb.appendText(strconv.FormatInt(l, 10))
}

// AppendChar appends a single character.
func (sb *StringBuffer) AppendChar(c rune) *StringBuffer {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.appendLocked("StringBuffer.append", []rune{c})
	return sb
}

// AppendBool appends "true" or "false".
func (sb *StringBuffer) AppendBool(b bool) *StringBuffer {
	return sb.appendText(strconv.FormatBool(b))
}

func (sb *StringBuffer) appendText(text string) *StringBuffer {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.appendLocked("StringBuffer.append", []rune(text))
	return sb
}

// appendLocked copies chars to the end of the buffer, growing it first
// when needed. Callers hold sb.mu.
func (sb *StringBuffer) appendLocked(op string, chars []rune) {
	if sb.err != nil {
		return
	}
	needed := sb.length + len(chars)
	if needed > sb.capacity {
		if err := sb.growLocked(op, needed); err != nil {
			sb.err = err
			return
		}
	}
	copy(sb.buf[sb.length:], chars)
	sb.length = needed
}

// growLocked doubles capacity until it holds needed characters. The
// capacity never shrinks.
func (sb *StringBuffer) growLocked(op string, needed int) error {
	limit := sb.rt.cfg.MaxBufferCapacity
	if limit <= 0 {
		limit = DefaultMaxBufferCapacity
	}
	if needed > limit || needed < sb.length {
		return &Error{
			Kind:   KindAllocation,
			Op:     op,
			Detail: "buffer capacity " + strconv.Itoa(needed) + " exceeds limit " + strconv.Itoa(limit),
			Value:  needed,
		}
	}
	newCap := sb.capacity
	if newCap <= 0 {
		newCap = 1
	}
	for newCap < needed {
		if newCap > limit/2 {
			newCap = limit
			break
		}
		newCap *= 2
	}
	grown := make([]rune, newCap)
	copy(grown, sb.buf[:sb.length])
	sb.buf = grown
	sb.capacity = newCap
	return nil
}

// Err returns the growth failure that stopped the buffer, if any.
func (sb *StringBuffer) Err() error {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.err
}

// Length returns the number of characters appended so far.
func (sb *StringBuffer) Length() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.length
}

// Capacity returns the current capacity in characters.
func (sb *StringBuffer) Capacity() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.capacity
}

// ToString returns a new String holding the buffer's current content.
// The String owns a copy; later appends do not affect it.
func (sb *StringBuffer) ToString() (*String, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.err != nil {
		return nil, sb.err
	}
	return sb.rt.newStringFromRunes("StringBuffer.toString", sb.buf[:sb.length])
}

func registerStringBufferClass(r *Runtime) *Class {
	return r.Classes.mustDefine("java.lang.StringBuffer", nil, func(mt *MethodTable) {
		appended := func(sb *StringBuffer) (Value, error) {
			if err := sb.Err(); err != nil {
				return NilValue(), err
			}
			return ObjectValue(sb), nil
		}

		mt.AddMethod(SelAppendObject, 1, func(self Object, args []Value) (Value, error) {
			sb := self.(*StringBuffer)
			text, err := r.Render(args[0])
			if err != nil {
				return NilValue(), err
			}
			return appended(sb.appendText(text))
		})

		mt.AddMethod(SelAppendInt, 1, func(self Object, args []Value) (Value, error) {
			return appended(self.(*StringBuffer).AppendInt(args[0].AsInt()))
		})

		mt.AddMethod(SelAppendLong, 1, func(self Object, args []Value) (Value, error) {
			return appended(self.(*StringBuffer).AppendLong(args[0].AsLong()))
		})

		mt.AddMethod(SelToString, 0, func(self Object, args []Value) (Value, error) {
			s, err := self.(*StringBuffer).ToString()
			if err != nil {
				return NilValue(), err
			}
			return ObjectValue(s), nil
		})

		mt.AddMethod(SelLength, 0, func(self Object, args []Value) (Value, error) {
			return IntValue(int32(self.(*StringBuffer).Length())), nil
		})
	})
}
