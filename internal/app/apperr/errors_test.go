package apperr

import (
	"errors"
	"testing"
)

func TestStoreUnavailable_IsDistinguishable(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := error(StoreUnavailable(cause))

	if !IsStoreUnavailable(err) {
		t.Fatalf("IsStoreUnavailable=false, want true")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost from chain: %v", err)
	}
	ae, ok := As(err)
	if !ok || ae.Status != 503 || ae.Code != CodeStoreUnavailable {
		t.Fatalf("As()=%+v ok=%v", ae, ok)
	}
}

func TestValidation_DetailsNameField(t *testing.T) {
	t.Parallel()

	ae := Validation("email", "must be non-empty")
	if ae.Status != 422 || ae.Details["email"] != "must be non-empty" {
		t.Fatalf("ae=%+v", ae)
	}
	if IsStoreUnavailable(ae) {
		t.Fatalf("validation error reported as store failure")
	}
}
