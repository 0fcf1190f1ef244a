package runtime

import (
	"errors"
	"strings"
	"testing"
)

func TestNewString(t *testing.T) {
	r := newTestRuntime(t)

	tests := []struct {
		src    string
		length int
	}{
		{"", 0},
		{"hello", 5},
		{"héllo", 5},
		{"日本語", 3},
	}

	for _, tt := range tests {
		s, err := r.NewString(tt.src)
		if err != nil {
			t.Fatalf("NewString(%q) failed: %v", tt.src, err)
		}
		if s.Length() != tt.length {
			t.Errorf("NewString(%q).Length() = %d, want %d", tt.src, s.Length(), tt.length)
		}
		if s.String() != tt.src {
			t.Errorf("NewString(%q).String() = %q", tt.src, s.String())
		}
		if ClassOf(s) != r.StringClass {
			t.Errorf("NewString(%q) bound to %v", tt.src, ClassOf(s))
		}
	}
}

func TestNewStringOverflow(t *testing.T) {
	r := newTestRuntime(t)

	if _, err := r.NewString(strings.Repeat("a", DefaultMaxStringLength)); err != nil {
		t.Fatalf("string at the limit rejected: %v", err)
	}
	_, err := r.NewString(strings.Repeat("a", DefaultMaxStringLength+1))
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("error = %v, want ErrOverflow", err)
	}
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Op != "String.<init>" {
		t.Errorf("error op = %v, want String.<init>", err)
	}
}

func TestConfiguredMaxStringLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxStringLength = 3
	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.NewString("abcd"); !errors.Is(err, ErrOverflow) {
		t.Errorf("error = %v, want ErrOverflow", err)
	}

	abc := r.StringConstant("abc")
	if _, err := abc.Concat(r.StringConstant("d")); !errors.Is(err, ErrOverflow) {
		t.Errorf("Concat error = %v, want ErrOverflow", err)
	}
}

func TestStringConstantPanicsOnOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxStringLength = 2
	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		p := recover()
		err, ok := p.(error)
		if !ok || !errors.Is(err, ErrOverflow) {
			t.Errorf("panic = %v, want overflow error", p)
		}
	}()
	r.StringConstant("too long")
}

func TestStringConstantIsInterned(t *testing.T) {
	r := newTestRuntime(t)
	a := r.StringConstant("hello")
	b := r.StringConstant("hello")
	if a != b {
		t.Error("same literal should yield the same instance")
	}
	c, _ := r.NewString("hello")
	if a == c {
		t.Error("NewString should not return the interned instance")
	}
}

func TestStringCharAt(t *testing.T) {
	r := newTestRuntime(t)
	s := r.StringConstant("héllo")

	want := []rune("héllo")
	for i, c := range want {
		got, err := s.CharAt(i)
		if err != nil {
			t.Fatalf("CharAt(%d) failed: %v", i, err)
		}
		if got != c {
			t.Errorf("CharAt(%d) = %q, want %q", i, got, c)
		}
	}

	for _, i := range []int{-1, len(want), 100} {
		_, err := s.CharAt(i)
		if !errors.Is(err, ErrBounds) {
			t.Errorf("CharAt(%d) error = %v, want ErrBounds", i, err)
		}
	}
}

func TestStringCharAtByDispatch(t *testing.T) {
	r := newTestRuntime(t)
	s := r.StringConstant("abc")

	v, err := r.Dispatch(s, SelCharAt, IntValue(1))
	if err != nil {
		t.Fatal(err)
	}
	if v.Type != TypeChar || v.AsChar() != 'b' {
		t.Errorf("charAt(1) = %v, want 'b'", v)
	}

	_, err = r.Dispatch(s, SelCharAt, IntValue(3))
	if !errors.Is(err, ErrBounds) {
		t.Errorf("charAt(3) error = %v, want ErrBounds", err)
	}

	v, err = r.Dispatch(s, SelLength)
	if err != nil || v.AsInt() != 3 {
		t.Errorf("length() = %v (%v), want 3", v, err)
	}
}

func TestStringEquals(t *testing.T) {
	r := newTestRuntime(t)
	hello := r.StringConstant("hello")
	copied, _ := r.NewString("hello")
	other, _ := r.NewString("world")
	prefix, _ := r.NewString("hell")

	sb := r.NewStringBuffer()
	sb.AppendString(r.StringConstant("hel")).AppendString(r.StringConstant("lo"))

	tests := []struct {
		name  string
		other Object
		want  bool
	}{
		{"itself", hello, true},
		{"equal copy", copied, true},
		{"different content", other, false},
		{"prefix", prefix, false},
		{"buffer with same content", sb, true},
		{"null", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hello.ContentEquals(tt.other)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ContentEquals = %v, want %v", got, tt.want)
			}

			v, err := r.Dispatch(hello, SelEquals, ObjectValue(tt.other))
			if err != nil {
				t.Fatal(err)
			}
			if v.AsBool() != tt.want {
				t.Errorf("equals() = %v, want %v", v.AsBool(), tt.want)
			}
		})
	}
}

func TestStringEqualsIsSymmetricForStrings(t *testing.T) {
	r := newTestRuntime(t)
	a, _ := r.NewString("same")
	b, _ := r.NewString("same")

	ab, _ := a.ContentEquals(b)
	ba, _ := b.ContentEquals(a)
	if !ab || !ba {
		t.Errorf("a.equals(b) = %v, b.equals(a) = %v; want both true", ab, ba)
	}
}

func TestStringHashCode(t *testing.T) {
	r := newTestRuntime(t)

	tests := []struct {
		src  string
		want int32
	}{
		{"", 0},
		{"a", 97},
		{"hello", 99162322},
		{"Hello World", -862545276},
	}

	for _, tt := range tests {
		s, _ := r.NewString(tt.src)
		if got := s.HashCode(); got != tt.want {
			t.Errorf("%q.HashCode() = %d, want %d", tt.src, got, tt.want)
		}
	}

	a, _ := r.NewString("content")
	b, _ := r.NewString("content")
	if a.HashCode() != b.HashCode() {
		t.Error("equal strings must hash equally")
	}
}

func TestStringToStringIsIdentity(t *testing.T) {
	r := newTestRuntime(t)
	s := r.StringConstant("self")

	if s.ToString() != s {
		t.Error("ToString should return the receiver")
	}
	v, err := r.Dispatch(s, SelToString)
	if err != nil || v.AsObject() != Object(s) {
		t.Errorf("toString() = %v (%v), want the receiver", v, err)
	}
}

func TestStringConcat(t *testing.T) {
	r := newTestRuntime(t)
	a := r.StringConstant("foo")
	b := r.StringConstant("bar")

	c, err := a.Concat(b)
	if err != nil {
		t.Fatal(err)
	}
	if c.String() != "foobar" || c.Length() != 6 {
		t.Errorf("Concat = %q (len %d), want foobar", c.String(), c.Length())
	}
	if a.String() != "foo" {
		t.Error("Concat must not modify the receiver")
	}
}

func TestRenderValues(t *testing.T) {
	r := newTestRuntime(t)

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", NilValue(), "null"},
		{"true", BoolValue(true), "true"},
		{"char", CharValue('é'), "é"},
		{"int", IntValue(-42), "-42"},
		{"long", LongValue(1 << 40), "1099511627776"},
		{"string", ObjectValue(r.StringConstant("text")), "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Render(tt.v)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNullRendersUnderSmallLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxStringLength = 1
	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	s, err := r.RenderObject(nil)
	if err != nil || s.String() != "null" {
		t.Fatalf("RenderObject(nil) = %v, %v; want null", s, err)
	}
	sb := r.NewStringBuffer()
	if _, err := sb.AppendObject(nil); err != nil {
		t.Fatal(err)
	}
	sb.AppendString(nil)
	if sb.Length() != 8 || sb.Err() != nil {
		t.Errorf("Length() = %d, Err() = %v; want 8 and no error", sb.Length(), sb.Err())
	}
}
