package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studiofit/frontdesk-api/internal/app/checkin"
	"github.com/studiofit/frontdesk-api/internal/domain"
)

// SelfCheckIn handles POST /checkins/self from the kiosk.
func (s *Server) SelfCheckIn(w http.ResponseWriter, r *http.Request) {
	var body CheckInRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.idempotent(w, r, "/checkins/self", body, func() (int, any, error) {
		return s.checkIn(r.Context(), checkin.EvaluateInput{
			Identifier:  body.Identifier,
			Policy:      checkin.PolicySelfService,
			PerformedBy: domain.PerformedBySelf,
			Notes:       body.Notes,
		})
	})
}

// AssistedCheckIn handles POST /checkins/assisted. The operator is the authenticated subject.
func (s *Server) AssistedCheckIn(w http.ResponseWriter, r *http.Request) {
	var body CheckInRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	operator, _ := SubjectFromContext(r.Context())
	s.idempotent(w, r, "/checkins/assisted", body, func() (int, any, error) {
		return s.checkIn(r.Context(), checkin.EvaluateInput{
			Identifier:  body.Identifier,
			Policy:      checkin.PolicyAssistedByStaff,
			PerformedBy: operator,
			Notes:       body.Notes,
		})
	})
}

// checkIn answers 201 for an allowed visit and 200 for a denial; denials are not errors.
func (s *Server) checkIn(ctx context.Context, in checkin.EvaluateInput) (int, any, error) {
	d, err := s.CheckIns.Evaluate(ctx, in)
	if err != nil {
		return 0, nil, err
	}
	status := http.StatusOK
	if d.Allowed() {
		status = http.StatusCreated
	}
	return status, decisionFromDomain(d), nil
}

// ListDailyCheckIns handles GET /checkins?date=YYYY-MM-DD (default today).
func (s *Server) ListDailyCheckIns(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		date, err := queryDate(r, "date")
		if err != nil {
			return 0, nil, err
		}
		if date.IsZero() {
			date = s.CheckIns.Today()
		}
		rs, err := s.CheckIns.Attendance(r.Context(), date)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, DailyCheckInsResponse{Date: wireDate(date), CheckIns: checkInsFromDomain(rs)}, nil
	})
}

// ListMemberCheckIns handles GET /members/{memberId}/checkins?from=&to=.
func (s *Server) ListMemberCheckIns(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		from, err := queryDate(r, "from")
		if err != nil {
			return 0, nil, err
		}
		to, err := queryDate(r, "to")
		if err != nil {
			return 0, nil, err
		}
		rs, err := s.CheckIns.History(r.Context(), domain.MemberID(chi.URLParam(r, "memberId")), from, to)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, CheckInListResponse{CheckIns: checkInsFromDomain(rs)}, nil
	})
}

// GetStanding handles GET /standing?identifier=&date=.
func (s *Server) GetStanding(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		date, err := queryDate(r, "date")
		if err != nil {
			return 0, nil, err
		}
		rep, err := s.CheckIns.StandingOn(r.Context(), r.URL.Query().Get("identifier"), date)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, standingFromDomain(rep), nil
	})
}
