package validation

import (
	"strings"
	"testing"
)

func TestTitle(t *testing.T) {
	t.Run("accepts a normal title", func(t *testing.T) {
		if err := Title("CI key"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("rejects empty title", func(t *testing.T) {
		err := Title("   ")
		if err == nil || !strings.Contains(err.Error(), "required") {
			t.Fatalf("expected required error, got %v", err)
		}
	})

	t.Run("rejects overlong title", func(t *testing.T) {
		err := Title(strings.Repeat("x", 256))
		if err == nil || !strings.Contains(err.Error(), "255") {
			t.Fatalf("expected length error, got %v", err)
		}
	})

	t.Run("accepts a title at the limit", func(t *testing.T) {
		if err := Title(strings.Repeat("x", 255)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestDescription(t *testing.T) {
	if err := Description(""); err != nil {
		t.Fatalf("expected empty description to pass, got %v", err)
	}
	if err := Description(strings.Repeat("d", 1025)); err == nil {
		t.Fatal("expected overlong description to fail")
	}
}

func TestExpiresInDays(t *testing.T) {
	t.Run("nil passes", func(t *testing.T) {
		if err := ExpiresInDays(nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("accepts bounds", func(t *testing.T) {
		for _, d := range []int{1, 30, 365} {
			days := d
			if err := ExpiresInDays(&days); err != nil {
				t.Fatalf("expected %d to pass, got %v", d, err)
			}
		}
	})

	t.Run("rejects out of range", func(t *testing.T) {
		for _, d := range []int{0, -1, 366} {
			days := d
			if err := ExpiresInDays(&days); err == nil {
				t.Fatalf("expected %d to fail", d)
			}
		}
	})
}
