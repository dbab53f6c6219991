package renderer

import (
	"errors"
	"testing"
)

func TestLimitGuard(t *testing.T) {
	guard := LimitGuard(1024)

	if err := guard(1024); err != nil {
		t.Errorf("Allocation at the limit should pass, got %v", err)
	}
	if err := guard(1025); !errors.Is(err, ErrResourceExhausted) {
		t.Errorf("Expected ErrResourceExhausted above the limit, got %v", err)
	}
}

func TestSystemMemoryGuard(t *testing.T) {
	guard := SystemMemoryGuard(DefaultMemoryFraction)

	if err := guard(1024); err != nil {
		t.Errorf("A 1KiB allocation should always pass, got %v", err)
	}
	if err := guard(^uint64(0)); err != nil && !errors.Is(err, ErrResourceExhausted) {
		t.Errorf("Expected ErrResourceExhausted for an impossible allocation, got %v", err)
	}
}
