package envutil

import (
	"testing"
	"time"
)

func TestLookups(t *testing.T) {
	t.Setenv("LABGEN_T_INT", " 12 ")
	t.Setenv("LABGEN_T_BAD_INT", "twelve")
	t.Setenv("LABGEN_T_FLOAT", "0.25")
	t.Setenv("LABGEN_T_BOOL", "off")
	t.Setenv("LABGEN_T_DUR", "90")
	t.Setenv("LABGEN_T_DUR2", "1m30s")

	if got := Int("LABGEN_T_INT", 1); got != 12 {
		t.Fatalf("Int=%d", got)
	}
	if got := Int("LABGEN_T_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback=%d", got)
	}
	if got := Float("LABGEN_T_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float=%v", got)
	}
	if got := Bool("LABGEN_T_BOOL", true); got {
		t.Fatalf("Bool=%v", got)
	}
	if got := Duration("LABGEN_T_DUR", 0); got != 90*time.Second {
		t.Fatalf("Duration=%v", got)
	}
	if got := Duration("LABGEN_T_DUR2", 0); got != 90*time.Second {
		t.Fatalf("Duration=%v", got)
	}
	if got := String("LABGEN_T_MISSING", "def"); got != "def" {
		t.Fatalf("String=%q", got)
	}
}
