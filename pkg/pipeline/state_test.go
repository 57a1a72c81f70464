package pipeline

import (
	"reflect"
	"testing"
)

func TestValueInterface(t *testing.T) {
	v := Map(map[string]Value{
		"name":  String("alpha"),
		"count": Number(3),
		"ok":    Bool(true),
		"tags":  List(String("x"), String("y")),
	})

	want := map[string]any{
		"name":  "alpha",
		"count": float64(3),
		"ok":    true,
		"tags":  []any{"x", "y"},
	}
	if got := v.Interface(); !reflect.DeepEqual(got, want) {
		t.Errorf("Interface() = %#v, want %#v", got, want)
	}
}

func TestStateGetters(t *testing.T) {
	s := State{
		"name":  String("alpha"),
		"count": Number(3),
		"ok":    Bool(true),
	}

	if got := s.GetString("name"); got != "alpha" {
		t.Errorf("GetString = %q", got)
	}
	if got := s.GetNumber("count"); got != 3 {
		t.Errorf("GetNumber = %v", got)
	}
	if !s.GetBool("ok") {
		t.Error("GetBool = false, want true")
	}

	// Absent keys and kind mismatches yield zero values.
	if got := s.GetString("missing"); got != "" {
		t.Errorf("GetString(missing) = %q", got)
	}
	if got := s.GetString("count"); got != "" {
		t.Errorf("GetString(count) = %q, want zero on kind mismatch", got)
	}
	if got := s.GetNumber("name"); got != 0 {
		t.Errorf("GetNumber(name) = %v", got)
	}
	if s.GetBool("name") {
		t.Error("GetBool(name) = true, want false")
	}
}
