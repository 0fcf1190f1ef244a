package runtime

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func bufferText(t *testing.T, sb *StringBuffer) string {
	t.Helper()
	s, err := sb.ToString()
	if err != nil {
		t.Fatalf("ToString failed: %v", err)
	}
	return s.String()
}

func TestStringBufferAppendChain(t *testing.T) {
	r := newTestRuntime(t)
	sb := r.NewStringBuffer()

	sb.AppendString(r.StringConstant("x=")).
		AppendInt(-7).
		AppendString(r.StringConstant(", y=")).
		AppendLong(9000000000).
		AppendChar(';').
		AppendBool(true).
		AppendString(nil)

	want := "x=-7, y=9000000000;truenull"
	if got := bufferText(t, sb); got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
	if sb.Length() != len([]rune(want)) {
		t.Errorf("Length() = %d, want %d", sb.Length(), len(want))
	}
}

func TestStringBufferAppendObjectUsesToString(t *testing.T) {
	r := newTestRuntime(t)
	_, _, _, dog, _ := defineAnimals(t, r)
	sb := r.NewStringBuffer()

	if _, err := sb.AppendObject(newAnimal(t, dog, "rex")); err != nil {
		t.Fatal(err)
	}
	sb.AppendChar(' ')
	if _, err := sb.AppendObject(nil); err != nil {
		t.Fatal(err)
	}

	if got := bufferText(t, sb); got != "rex null" {
		t.Errorf("content = %q, want %q", got, "rex null")
	}
}

func TestStringBufferFrom(t *testing.T) {
	r := newTestRuntime(t)
	sb := r.NewStringBufferFrom(r.StringConstant("seed"))
	sb.AppendInt(1)

	if got := bufferText(t, sb); got != "seed1" {
		t.Errorf("content = %q, want seed1", got)
	}
	if got := bufferText(t, r.NewStringBufferFrom(nil)); got != "" {
		t.Errorf("buffer from nil = %q, want empty", got)
	}
}

func TestStringBufferToStringSnapshots(t *testing.T) {
	r := newTestRuntime(t)
	sb := r.NewStringBuffer()
	sb.AppendString(r.StringConstant("before"))

	snap, err := sb.ToString()
	if err != nil {
		t.Fatal(err)
	}
	sb.AppendString(r.StringConstant(" after"))

	if snap.String() != "before" {
		t.Errorf("snapshot changed to %q", snap.String())
	}
	if got := bufferText(t, sb); got != "before after" {
		t.Errorf("content = %q", got)
	}
}

func TestStringBufferGrows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferInitialCapacity = 4
	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	sb := r.NewStringBuffer()
	if sb.Capacity() != 4 {
		t.Fatalf("initial capacity = %d, want 4", sb.Capacity())
	}

	last := sb.Capacity()
	for i := 0; i < 10; i++ {
		sb.AppendString(r.StringConstant("abc"))
		if c := sb.Capacity(); c < last || c < sb.Length() {
			t.Fatalf("capacity %d after %d chars (was %d)", c, sb.Length(), last)
		}
		last = sb.Capacity()
	}
	if got := bufferText(t, sb); got != strings.Repeat("abc", 10) {
		t.Errorf("content = %q", got)
	}
	if last != 32 {
		t.Errorf("capacity = %d, want 32 after doubling from 4", last)
	}
}

func TestStringBufferAllocationLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferInitialCapacity = 2
	cfg.MaxBufferCapacity = 8
	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	sb := r.NewStringBuffer()

	sb.AppendString(r.StringConstant("12345678"))
	if err := sb.Err(); err != nil {
		t.Fatalf("append up to the limit failed: %v", err)
	}

	sb.AppendChar('9').AppendChar('0')
	if err := sb.Err(); !errors.Is(err, ErrAllocation) {
		t.Fatalf("Err() = %v, want ErrAllocation", err)
	}
	if sb.Length() != 8 {
		t.Errorf("Length() = %d after failed append, want 8", sb.Length())
	}
	if _, err := sb.ToString(); !errors.Is(err, ErrAllocation) {
		t.Errorf("ToString error = %v, want the sticky ErrAllocation", err)
	}
}

func TestStringBufferToStringOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxStringLength = 5
	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	sb := r.NewStringBuffer()
	sb.AppendLong(1234567)

	if _, err := sb.ToString(); !errors.Is(err, ErrOverflow) {
		t.Errorf("ToString error = %v, want ErrOverflow", err)
	}
	if err := sb.Err(); err != nil {
		t.Errorf("a failed ToString should not poison the buffer, got %v", err)
	}
}

func TestStringBufferAppendObjectFailureIsReturned(t *testing.T) {
	r := newTestRuntime(t)
	bad, err := r.DefineClass("app.BadToString", nil, func(mt *MethodTable) {
		mt.AddMethod(SelToString, 0, func(self Object, args []Value) (Value, error) {
			return NilValue(), newError(KindIllegalState, "app.BadToString.toString", "boom")
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	sb := r.NewStringBuffer()
	sb.AppendInt(1)
	if _, err := sb.AppendObject(newAnimal(t, bad, "")); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("AppendObject error = %v, want ErrIllegalState", err)
	}
	if err := sb.Err(); err != nil {
		t.Errorf("a failing toString() should not stop the buffer, Err() = %v", err)
	}

	sb.AppendInt(2)
	if got := bufferText(t, sb); got != "12" {
		t.Errorf("content = %q, want 12", got)
	}

	if _, err := r.Dispatch(sb, SelAppendObject, ObjectValue(newAnimal(t, bad, ""))); !errors.Is(err, ErrIllegalState) {
		t.Errorf("append(Object) error = %v, want ErrIllegalState", err)
	}
	if _, err := r.Dispatch(sb, SelAppendInt, IntValue(3)); err != nil {
		t.Errorf("append(int) after another caller's failure: %v", err)
	}
}

func TestStringBufferDispatch(t *testing.T) {
	r := newTestRuntime(t)
	sb := r.NewStringBuffer()

	for _, call := range []struct {
		sel int
		arg Value
	}{
		{SelAppendObject, ObjectValue(r.StringConstant("n="))},
		{SelAppendInt, IntValue(3)},
		{SelAppendObject, CharValue('/')},
		{SelAppendLong, LongValue(-4)},
	} {
		v, err := r.Dispatch(sb, call.sel, call.arg)
		if err != nil {
			t.Fatalf("%s failed: %v", r.Selectors.Name(call.sel), err)
		}
		if v.AsObject() != Object(sb) {
			t.Fatalf("%s should return the receiver", r.Selectors.Name(call.sel))
		}
	}

	v, err := r.Dispatch(sb, SelToString)
	if got := stringResult(t, r, v, err); got != "n=3/-4" {
		t.Errorf("toString() = %q, want n=3/-4", got)
	}
	v, err = r.Dispatch(sb, SelLength)
	if err != nil || v.AsInt() != 6 {
		t.Errorf("length() = %v (%v), want 6", v, err)
	}
}

func TestStringBufferConcurrentAppends(t *testing.T) {
	r := newTestRuntime(t)
	sb := r.NewStringBuffer()

	const workers = 8
	const perWorker = 200
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			word := r.StringConstant(string(rune('a' + w)))
			for i := 0; i < perWorker; i++ {
				sb.AppendString(word)
			}
		}(w)
	}
	wg.Wait()

	if err := sb.Err(); err != nil {
		t.Fatal(err)
	}
	got := bufferText(t, sb)
	if len(got) != workers*perWorker {
		t.Fatalf("length = %d, want %d", len(got), workers*perWorker)
	}
	for w := 0; w < workers; w++ {
		c := string(rune('a' + w))
		if n := strings.Count(got, c); n != perWorker {
			t.Errorf("%q appears %d times, want %d", c, n, perWorker)
		}
	}
}
