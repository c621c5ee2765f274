package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundCode(t *testing.T) {
	err := NotFound("invoice", 42)
	if err.Code != "INVOICE_NOT_FOUND" {
		t.Fatalf("expected INVOICE_NOT_FOUND got %s", err.Code)
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("wrong kind: %v", KindOf(err))
	}
}

func TestKindOfWrappedChain(t *testing.T) {
	inner := Conflict("DUPLICATE_EMAIL", "email already registered")
	wrapped := fmt.Errorf("create client: %w", inner)
	if KindOf(wrapped) != KindConflict {
		t.Fatalf("expected conflict through wrap, got %v", KindOf(wrapped))
	}
	if CodeOf(wrapped) != "DUPLICATE_EMAIL" {
		t.Fatalf("expected code through wrap, got %s", CodeOf(wrapped))
	}
}

func TestTransactionWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Transaction("create invoice", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable via errors.Is")
	}
	if KindOf(err) != KindTransaction {
		t.Fatalf("wrong kind: %v", KindOf(err))
	}
}

func TestKindOfForeignError(t *testing.T) {
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("foreign error should be KindUnknown")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("foreign error should have empty code")
	}
}

func TestWithDetail(t *testing.T) {
	err := Conflict("INVALID_STATUS_TRANSITION", "not allowed").
		WithDetail("current", "paid").
		WithDetail("requested", "sent")
	if err.Details["current"] != "paid" || err.Details["requested"] != "sent" {
		t.Fatalf("details not recorded: %#v", err.Details)
	}
}
