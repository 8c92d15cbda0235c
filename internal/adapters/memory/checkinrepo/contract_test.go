package checkinrepo

import (
	"testing"

	"github.com/studiofit/frontdesk-api/internal/adapters/contracttest"
	memmemberrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/memberrepo"
	checkinrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/checkinrepo"
	memberrepoport "github.com/studiofit/frontdesk-api/internal/ports/out/memberrepo"
)

func TestContract_CheckInRepo(t *testing.T) {
	contracttest.RunCheckInRepo(t,
		func(t *testing.T) (memberrepoport.Repository, func()) {
			t.Helper()
			return memmemberrepo.NewRepo(), nil
		},
		func(t *testing.T) (checkinrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(), nil
		},
	)
}
