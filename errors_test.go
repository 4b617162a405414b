package channel

import (
	"errors"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := newErr("TestOp", StoreMiss, nil)
	if !errors.Is(err, StoreMiss) {
		t.Fatal("expected errors.Is to match the same Kind")
	}
	if errors.Is(err, CryptoFailure) {
		t.Fatal("errors.Is matched an unrelated Kind")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	err := newErr("TestOp", CryptoFailure, cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to follow Unwrap to the wrapped cause")
	}
}

func TestErrfFormatsMessage(t *testing.T) {
	err := errf("TestOp", EncodingError, "bad length: %d", 7)
	if err.Kind != EncodingError {
		t.Fatalf("got kind %v, want EncodingError", err.Kind)
	}
	if err.Error() == "" {
		t.Fatal("expected a non-empty error string")
	}
}

func TestKindString(t *testing.T) {
	if PreconditionUnmet.String() != "precondition unmet" {
		t.Fatalf("unexpected string for PreconditionUnmet: %q", PreconditionUnmet.String())
	}
	if Kind(99).String() != "unknown" {
		t.Fatalf("unexpected string for unknown kind: %q", Kind(99).String())
	}
}
