package waitlistrepo

import (
	"testing"

	"github.com/studiofit/frontdesk-api/internal/adapters/contracttest"
	"github.com/studiofit/frontdesk-api/internal/adapters/postgres/testutil"
	waitlistrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/waitlistrepo"
)

func TestContract_PostgresWaitlistRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunWaitlistRepo(t, func(t *testing.T) (waitlistrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
