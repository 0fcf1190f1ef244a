package runtime

import (
	"fmt"
	"sync/atomic"
)

// Object is implemented by every value the runtime can dispatch on.
// Generated types satisfy it by embedding Header.
type Object interface {
	ObjectHeader() *Header
}

// Header is the instance header carried by every object. It binds the
// object to exactly one Class, once, at construction.
type Header struct {
	class atomic.Pointer[Class]
	hash  atomic.Uint32
}

// ObjectHeader returns the header itself; embedding structs inherit it.
func (h *Header) ObjectHeader() *Header {
	return h
}

// Class returns the bound class, or nil before construction.
func (h *Header) Class() *Class {
	return h.class.Load()
}

// IdentityHash returns the identity hash assigned at construction.
func (h *Header) IdentityHash() uint32 {
	return h.hash.Load()
}

var nextIdentityHash atomic.Uint32

// Construct binds obj to class c. The binding is permanent: constructing
// an already bound object fails with ErrIllegalState.
func Construct(obj Object, c *Class) error {
	if obj == nil {
		return newError(KindIllegalArgument, "construct", "nil object")
	}
	if c == nil {
		return newError(KindIllegalArgument, "construct", "nil class")
	}
	h := obj.ObjectHeader()
	if !h.class.CompareAndSwap(nil, c) {
		return &Error{
			Kind:   KindIllegalState,
			Op:     "construct",
			Detail: fmt.Sprintf("object already bound to %s", h.Class().Name),
			Value:  c.Name,
		}
	}
	h.hash.Store(nextIdentityHash.Add(1))
	return nil
}

// mustConstruct is used for runtime-owned objects whose headers are fresh.
func mustConstruct(obj Object, c *Class) {
	if err := Construct(obj, c); err != nil {
		panic(err)
	}
}

// ClassOf returns the class bound to obj. A nil object or an unbound
// header is a defect in generated code and panics.
func ClassOf(obj Object) *Class {
	return classOf(obj, "classOf")
}

func classOf(obj Object, op string) *Class {
	if obj == nil {
		contractViolation(op, "null receiver")
	}
	c := obj.ObjectHeader().Class()
	if c == nil {
		contractViolation(op, "receiver %T has no bound class", obj)
	}
	return c
}

// InstanceOf reports whether obj's class is c or a subclass of c.
func InstanceOf(obj Object, c *Class) bool {
	if obj == nil {
		return false
	}
	oc := obj.ObjectHeader().Class()
	return oc != nil && oc.IsSubclassOf(c)
}

// registerObjectClass defines java.lang.Object, the root of every chain.
func registerObjectClass(r *Runtime) *Class {
	c := r.Classes.mustDefine("java.lang.Object", nil, func(mt *MethodTable) {
		// equals(Object) compares renderings, so subclasses that only
		// override toString() get content equality for free.
		mt.AddMethod(SelEquals, 1, func(self Object, args []Value) (Value, error) {
			other := args[0].AsObject()
			if other == nil {
				return BoolValue(false), nil
			}
			mine, err := r.RenderObject(self)
			if err != nil {
				return NilValue(), err
			}
			eq, err := mine.ContentEquals(other)
			return BoolValue(eq), err
		})

		mt.AddMethod(SelToString, 0, func(self Object, args []Value) (Value, error) {
			h := self.ObjectHeader()
			s, err := r.NewString(fmt.Sprintf("%s@%x", h.Class().Name, h.IdentityHash()))
			if err != nil {
				return NilValue(), err
			}
			return ObjectValue(s), nil
		})

		mt.AddMethod(SelHashCode, 0, func(self Object, args []Value) (Value, error) {
			return IntValue(int32(self.ObjectHeader().IdentityHash())), nil
		})
	})
	r.Classes.setRoot(c)
	return c
}
