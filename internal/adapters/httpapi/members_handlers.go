package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studiofit/frontdesk-api/internal/domain"
)

func memberIDParam(r *http.Request) domain.MemberID {
	return domain.MemberID(chi.URLParam(r, "memberId"))
}

func (s *Server) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var body RegisterMemberRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.idempotent(w, r, "/members", body, func() (int, any, error) {
		m, err := s.Members.Register(r.Context(), registerInputFromWire(body))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, MemberResponse{Member: memberFromDomain(m)}, nil
	})
}

func (s *Server) GetMember(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		m, err := s.Members.Get(r.Context(), memberIDParam(r))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, MemberResponse{Member: memberFromDomain(m)}, nil
	})
}

func (s *Server) UpdateMember(w http.ResponseWriter, r *http.Request) {
	var body UpdateMemberRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.respond(w, r, func() (int, any, error) {
		m, err := s.Members.Update(r.Context(), memberIDParam(r), updateInputFromWire(body))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, MemberResponse{Member: memberFromDomain(m)}, nil
	})
}

// RecordPayment handles POST /members/{memberId}/payments. An empty body pays today.
func (s *Server) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var body RecordPaymentRequest
	if err := decodeOptionalJSON(w, r, &body); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	id := memberIDParam(r)
	request := struct {
		MemberID domain.MemberID     `json:"memberId"`
		Body     RecordPaymentRequest `json:"body"`
	}{id, body}
	s.idempotent(w, r, "/members/{memberId}/payments", request, func() (int, any, error) {
		var paidOn domain.Date
		if body.PaidOn != nil {
			paidOn = domainDate(*body.PaidOn)
		}
		m, err := s.Members.RecordPayment(r.Context(), id, paidOn)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, MemberResponse{Member: memberFromDomain(m)}, nil
	})
}

// MarkUnpaid handles DELETE /members/{memberId}/payments/current.
func (s *Server) MarkUnpaid(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, func() (int, any, error) {
		m, err := s.Members.MarkUnpaid(r.Context(), memberIDParam(r))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, MemberResponse{Member: memberFromDomain(m)}, nil
	})
}
