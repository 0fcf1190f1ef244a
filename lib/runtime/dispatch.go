package runtime

import (
	"fmt"
)

// Dispatch invokes the method for selector on obj, resolved through obj's
// class and then its ancestors. A receiver with no bound class panics.
func (r *Runtime) Dispatch(obj Object, selector int, args ...Value) (Value, error) {
	class := classOf(obj, "dispatch")
	m := class.Lookup(selector)
	if m == nil {
		return NilValue(), r.noSuchMethod(class, selector)
	}
	return invoke(m, obj, args)
}

// Send dispatches by method signature, e.g. "compareTo(Object)".
func (r *Runtime) Send(obj Object, signature string, args ...Value) (Value, error) {
	class := classOf(obj, "send")
	sel := r.Selectors.Lookup(signature)
	if sel < 0 {
		return NilValue(), &Error{
			Kind:   KindNoSuchMethod,
			Op:     "send",
			Detail: fmt.Sprintf("%s.%s", class.Name, signature),
		}
	}
	return r.Dispatch(obj, sel, args...)
}

// DispatchSuper resolves selector starting at from's superclass, for
// super.m(...) calls compiled inside class from.
func (r *Runtime) DispatchSuper(obj Object, from *Class, selector int, args ...Value) (Value, error) {
	classOf(obj, "dispatchSuper")
	if from == nil || from.Superclass == nil {
		return NilValue(), newError(KindNoSuchMethod, "dispatchSuper", "no superclass for %v", from)
	}
	m := from.Superclass.Lookup(selector)
	if m == nil {
		return NilValue(), r.noSuchMethod(from.Superclass, selector)
	}
	return invoke(m, obj, args)
}

func invoke(m *MethodEntry, obj Object, args []Value) (Value, error) {
	if len(args) != m.NumArgs {
		return NilValue(), &Error{
			Kind:   KindIllegalArgument,
			Op:     m.Owner.Name + "." + m.Name,
			Detail: fmt.Sprintf("expected %d arguments, got %d", m.NumArgs, len(args)),
		}
	}
	return m.Impl(obj, args)
}

func (r *Runtime) noSuchMethod(class *Class, selector int) *Error {
	name := r.Selectors.Name(selector)
	if name == "" {
		name = fmt.Sprintf("#%d", selector)
	}
	return &Error{
		Kind:   KindNoSuchMethod,
		Op:     "dispatch",
		Detail: fmt.Sprintf("%s.%s", class.Name, name),
		Value:  selector,
	}
}

// RenderObject dispatches toString() on obj. A null object renders as
// "null", as does a toString() that returns null.
func (r *Runtime) RenderObject(obj Object) (*String, error) {
	if obj == nil {
		return r.nullString(), nil
	}
	if s, ok := obj.(*String); ok {
		return s, nil
	}
	v, err := r.Dispatch(obj, SelToString)
	if err != nil {
		return nil, err
	}
	if v.IsNil() {
		return r.nullString(), nil
	}
	s, ok := v.AsObject().(*String)
	if !ok {
		return nil, &Error{
			Kind:   KindIllegalState,
			Op:     ClassOf(obj).Name + ".toString",
			Detail: fmt.Sprintf("returned %s, not a String", v),
		}
	}
	return s, nil
}

// Render returns the textual form of any value: base-10 for integers,
// the character for chars, and the dispatched toString() for objects.
func (r *Runtime) Render(v Value) (string, error) {
	if s, ok := v.primitiveText(); ok {
		return s, nil
	}
	s, err := r.RenderObject(v.ObjectVal)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}
