package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/studiofit/frontdesk-api/internal/app/waitlist"
	"github.com/studiofit/frontdesk-api/internal/domain"
)

func entryIDParam(r *http.Request) domain.WaitlistEntryID {
	return domain.WaitlistEntryID(chi.URLParam(r, "entryId"))
}

// JoinWaitlist handles the public POST /waitlist form.
func (s *Server) JoinWaitlist(w http.ResponseWriter, r *http.Request) {
	var body waitlist.JoinInput
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.idempotent(w, r, "/waitlist", body, func() (int, any, error) {
		e, err := s.Waitlist.Enqueue(r.Context(), body)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, WaitlistEntryResponse{Entry: waitlistEntryFromDomain(e)}, nil
	})
}

// ListWaitlist handles GET /waitlist?status=waiting|enrolled.
func (s *Server) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		es, err := s.Waitlist.List(r.Context(), domain.WaitlistStatus(r.URL.Query().Get("status")))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, WaitlistResponse{Entries: lo.Map(es, func(e domain.WaitlistEntry, _ int) WaitlistEntry {
			return waitlistEntryFromDomain(e)
		})}, nil
	})
}

func (s *Server) GetWaitlistEntry(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		e, err := s.Waitlist.Get(r.Context(), entryIDParam(r))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, WaitlistEntryResponse{Entry: waitlistEntryFromDomain(e)}, nil
	})
}

func (s *Server) PromoteWaitlistEntry(w http.ResponseWriter, r *http.Request) {
	var body PromoteRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	id := entryIDParam(r)
	request := struct {
		EntryID domain.WaitlistEntryID `json:"entryId"`
		Body    PromoteRequest         `json:"body"`
	}{id, body}
	s.idempotent(w, r, "/waitlist/{entryId}/promote", request, func() (int, any, error) {
		e, err := s.Waitlist.Promote(r.Context(), id, domain.MemberID(body.MemberId))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, WaitlistEntryResponse{Entry: waitlistEntryFromDomain(e)}, nil
	})
}

func (s *Server) RemoveWaitlistEntry(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		if err := s.Waitlist.Remove(r.Context(), entryIDParam(r)); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}
