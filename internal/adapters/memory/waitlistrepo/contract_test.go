package waitlistrepo

import (
	"testing"

	"github.com/studiofit/frontdesk-api/internal/adapters/contracttest"
	waitlistrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/waitlistrepo"
)

func TestContract_WaitlistRepo(t *testing.T) {
	contracttest.RunWaitlistRepo(t, func(t *testing.T) (waitlistrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
