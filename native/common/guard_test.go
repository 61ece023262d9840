package common

import (
	"errors"
	"testing"
)

func TestGuardNilViewAllows(t *testing.T) {
	if err := Guard(nil, "order"); err != nil {
		t.Fatalf("nil view: %v", err)
	}
}

func TestStaticPauses(t *testing.T) {
	pauses := NewStaticPauses([]string{" Order ", "", "swap"})

	if !pauses.IsPaused("order") {
		t.Fatalf("order should be paused")
	}
	if !pauses.IsPaused("ORDER") {
		t.Fatalf("matching must ignore case")
	}
	if pauses.IsPaused("lending") {
		t.Fatalf("lending should not be paused")
	}

	if err := Guard(pauses, "order"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("guard on paused module: %v", err)
	}
	if err := Guard(pauses, "lending"); err != nil {
		t.Fatalf("guard on unpaused module: %v", err)
	}
	if err := Guard(NewStaticPauses(nil), "order"); err != nil {
		t.Fatalf("empty pause list: %v", err)
	}
}
