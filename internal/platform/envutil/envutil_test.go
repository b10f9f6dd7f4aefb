package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("X_DUR", "250ms")
	if got := Duration("X_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("duration: want=250ms got=%s", got)
	}
	t.Setenv("X_DUR", "7")
	if got := Duration("X_DUR", time.Second); got != 7*time.Second {
		t.Fatalf("seconds: want=7s got=%s", got)
	}
	t.Setenv("X_DUR", "soon")
	if got := Duration("X_DUR", time.Second); got != time.Second {
		t.Fatalf("invalid: want=1s got=%s", got)
	}
}

func TestBoolAndFirst(t *testing.T) {
	t.Setenv("X_BOOL", "off")
	if Bool("X_BOOL", true) {
		t.Fatalf("bool: want=false got=true")
	}
	t.Setenv("X_BOOL", "")
	if !Bool("X_BOOL", true) {
		t.Fatalf("default: want=true got=false")
	}
	t.Setenv("X_A", "")
	t.Setenv("X_B", "b")
	if got := First("X_A", "X_B"); got != "b" {
		t.Fatalf("first: want=%q got=%q", "b", got)
	}
	if got := Int("X_B", 3); got != 3 {
		t.Fatalf("int: want=3 got=%d", got)
	}
}
