package httpapi

import (
	"time"

	"go.uber.org/zap"

	"github.com/studiofit/frontdesk-api/internal/app/checkin"
	"github.com/studiofit/frontdesk-api/internal/app/members"
	"github.com/studiofit/frontdesk-api/internal/app/waitlist"
	"github.com/studiofit/frontdesk-api/internal/platform/logger"
	"github.com/studiofit/frontdesk-api/internal/ports/out/idempotency"
)

// Server holds the use cases behind the HTTP routes. Handlers live in *_handlers.go.
type Server struct {
	Members  *members.Service
	CheckIns *checkin.Service
	Waitlist *waitlist.Service
	// Idem is optional; nil disables Idempotency-Key replay.
	Idem idempotency.Store

	log *zap.Logger
	now func() time.Time
}

func NewServer(membersSvc *members.Service, checkinSvc *checkin.Service, waitlistSvc *waitlist.Service, idem idempotency.Store, log *zap.Logger) *Server {
	return &Server{
		Members:  membersSvc,
		CheckIns: checkinSvc,
		Waitlist: waitlistSvc,
		Idem:     idem,
		log:      logger.OrNop(log),
		now:      time.Now,
	}
}
