package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	memcheckinrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/checkinrepo"
	memclock "github.com/studiofit/frontdesk-api/internal/adapters/memory/clock"
	memevents "github.com/studiofit/frontdesk-api/internal/adapters/memory/events"
	memidempotency "github.com/studiofit/frontdesk-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/memberrepo"
	memwaitlistrepo "github.com/studiofit/frontdesk-api/internal/adapters/memory/waitlistrepo"
	"github.com/studiofit/frontdesk-api/internal/app/checkin"
	"github.com/studiofit/frontdesk-api/internal/app/members"
	"github.com/studiofit/frontdesk-api/internal/app/waitlist"
	"github.com/studiofit/frontdesk-api/internal/platform/config"
	"github.com/studiofit/frontdesk-api/internal/platform/metrics"
)

var studioTZ = time.FixedZone("BRT", -3*60*60)

type testAPI struct {
	h       http.Handler
	members *memmemberrepo.Repo
	clock   *memclock.ManualClock
	events  *memevents.Recorder
}

// newTestAPI wires the router over memory adapters. The clock starts on Tuesday 2026-10-13
// at 09:00 studio time; staff requests authenticate with X-Debug-Subject.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2026, time.October, 13, 9, 0, 0, 0, studioTZ))
	memberRepo := memmemberrepo.NewRepo()
	rec := memevents.NewRecorder()
	m := metrics.New()

	memberSvc := members.NewService(memberRepo, clk, studioTZ, nil)
	checkinSvc := checkin.NewService(memberRepo, memcheckinrepo.NewRepo(), clk, checkin.Config{
		Location:          studioTZ,
		AssistedGraceDays: config.DefaultAssistedGraceDays,
	}, checkin.WithPublisher(rec), checkin.WithMetrics(m))
	waitlistSvc := waitlist.NewService(memwaitlistrepo.NewRepo(), clk, waitlist.WithPublisher(rec), waitlist.WithMetrics(m))

	api := NewServer(memberSvc, checkinSvc, waitlistSvc, memidempotency.NewStore(), nil)
	h := NewRouterWithOptions(api, RouterOptions{
		AuthMiddleware: NewDevAuthMiddleware(""),
		Metrics:        m.Handler(),
	})
	return &testAPI{h: h, members: memberRepo, clock: clk, events: rec}
}

type request struct {
	method  string
	path    string
	subject string
	body    any
	raw     string
	headers map[string]string
}

func (a *testAPI) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	switch {
	case req.raw != "":
		body = bytes.NewBufferString(req.raw)
	case req.body != nil:
		b, err := json.Marshal(req.body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		body = bytes.NewBuffer(b)
	default:
		body = &bytes.Buffer{}
	}
	r := httptest.NewRequest(req.method, req.path, body)
	if body.Len() > 0 {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.subject != "" {
		r.Header.Set("X-Debug-Subject", req.subject)
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, rec.Body.String())
	}
	return out
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got %d want %d body=%s", rec.Code, want, rec.Body.String())
	}
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, rec, wantStatus)
	er := decode[ErrorResponse](t, rec)
	if er.Error.Code != wantCode {
		t.Fatalf("error.code: got %q want %q body=%s", er.Error.Code, wantCode, rec.Body.String())
	}
}

type decisionBody struct {
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason"`
	Detail       string `json:"detail"`
	Message      string `json:"message"`
	DaysOverdue  *int   `json:"daysOverdue"`
	NextOpenDate string `json:"nextOpenDate"`
	CheckIn      *struct {
		MemberId    string `json:"memberId"`
		VisitDate   string `json:"visitDate"`
		Method      string `json:"method"`
		PerformedBy string `json:"performedBy"`
	} `json:"checkIn"`
}

func (a *testAPI) register(t *testing.T, nationalID string, feeDueDay int, paid bool, lastPayment string) Member {
	t.Helper()
	body := map[string]any{
		"fullName":   "Ana Souza",
		"nationalId": nationalID,
		"email":      "ana" + nationalID + "@example.com",
		"feeDueDay":  feeDueDay,
		"paidFlag":   paid,
	}
	if lastPayment != "" {
		body["lastPaymentDate"] = lastPayment
	}
	rec := a.do(t, request{method: http.MethodPost, path: "/members", subject: "staff-1", body: body})
	requireStatus(t, rec, http.StatusCreated)
	return decode[MemberResponse](t, rec).Member
}

func TestCheckIn_SelfAllowedThenAlreadyCheckedIn(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	m := api.register(t, "123.456.789-01", 5, true, "2026-10-05")
	if m.NationalId != "12345678901" {
		t.Fatalf("nationalId not normalized: %q", m.NationalId)
	}

	rec := api.do(t, request{method: http.MethodPost, path: "/checkins/self", body: CheckInRequest{Identifier: "12345678901"}})
	requireStatus(t, rec, http.StatusCreated)
	got := decode[decisionBody](t, rec)
	if got.Outcome != "allowed" || got.CheckIn == nil {
		t.Fatalf("unexpected decision: %s", rec.Body.String())
	}
	if got.CheckIn.MemberId != m.MemberId || got.CheckIn.VisitDate != "2026-10-13" || got.CheckIn.PerformedBy != "self" || got.CheckIn.Method != "national_id" {
		t.Fatalf("unexpected check-in: %+v", *got.CheckIn)
	}

	rec = api.do(t, request{method: http.MethodPost, path: "/checkins/self", body: CheckInRequest{Identifier: strings.ToUpper(m.Email)}})
	requireStatus(t, rec, http.StatusOK)
	got = decode[decisionBody](t, rec)
	if got.Outcome != "denied" || got.Reason != "ALREADY_CHECKED_IN_TODAY" || got.CheckIn != nil {
		t.Fatalf("unexpected decision: %s", rec.Body.String())
	}
}

func TestCheckIn_OverdueSelfDeniedAssistedAllowed(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.register(t, "11122233344", 6, false, "")

	rec := api.do(t, request{method: http.MethodPost, path: "/checkins/self", body: CheckInRequest{Identifier: "11122233344"}})
	requireStatus(t, rec, http.StatusOK)
	got := decode[decisionBody](t, rec)
	if got.Reason != "PAYMENT_OVERDUE" || got.DaysOverdue == nil || *got.DaysOverdue != 7 {
		t.Fatalf("unexpected decision: %s", rec.Body.String())
	}
	if !strings.Contains(got.Message, "7 days overdue") {
		t.Fatalf("message: %q", got.Message)
	}

	rec = api.do(t, request{method: http.MethodPost, path: "/checkins/assisted", subject: "staff-1", body: CheckInRequest{Identifier: "11122233344"}})
	requireStatus(t, rec, http.StatusCreated)
	got = decode[decisionBody](t, rec)
	if got.CheckIn == nil || got.CheckIn.PerformedBy != "staff-1" {
		t.Fatalf("unexpected decision: %s", rec.Body.String())
	}
}

func TestCheckIn_InvalidIdentifierAndWeekend(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	rec := api.do(t, request{method: http.MethodPost, path: "/checkins/self", body: CheckInRequest{Identifier: "123"}})
	requireStatus(t, rec, http.StatusOK)
	got := decode[decisionBody](t, rec)
	if got.Reason != "IDENTIFIER_NOT_RECOGNIZED" || got.Detail != "INVALID_FORMAT" {
		t.Fatalf("unexpected decision: %s", rec.Body.String())
	}

	api.register(t, "55566677788", 5, true, "2026-10-05")
	api.clock.Set(time.Date(2026, time.October, 17, 10, 0, 0, 0, studioTZ))
	rec = api.do(t, request{method: http.MethodPost, path: "/checkins/self", body: CheckInRequest{Identifier: "55566677788"}})
	requireStatus(t, rec, http.StatusOK)
	got = decode[decisionBody](t, rec)
	if got.Reason != "STUDIO_CLOSED_WEEKEND" || got.NextOpenDate != "2026-10-19" {
		t.Fatalf("unexpected decision: %s", rec.Body.String())
	}
}

func TestCheckIn_StaffListsAndStanding(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	m := api.register(t, "12312312312", 5, true, "2026-10-05")

	requireStatus(t, api.do(t, request{method: http.MethodPost, path: "/checkins/self", body: CheckInRequest{Identifier: m.Email}}), http.StatusCreated)

	rec := api.do(t, request{method: http.MethodGet, path: "/checkins", subject: "staff-1"})
	requireStatus(t, rec, http.StatusOK)
	daily := decode[DailyCheckInsResponse](t, rec)
	if daily.Date.Format("2006-01-02") != "2026-10-13" || len(daily.CheckIns) != 1 {
		t.Fatalf("unexpected daily list: %s", rec.Body.String())
	}

	rec = api.do(t, request{method: http.MethodGet, path: "/members/" + m.MemberId + "/checkins?from=2026-10-01&to=2026-10-31", subject: "staff-1"})
	requireStatus(t, rec, http.StatusOK)
	if hist := decode[CheckInListResponse](t, rec); len(hist.CheckIns) != 1 {
		t.Fatalf("unexpected history: %s", rec.Body.String())
	}

	rec = api.do(t, request{method: http.MethodGet, path: "/members/" + m.MemberId + "/checkins?from=oct", subject: "staff-1"})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, request{method: http.MethodGet, path: "/standing?identifier=12312312312&date=2026-11-07", subject: "staff-1"})
	requireStatus(t, rec, http.StatusOK)
	st := decode[StandingResponse](t, rec)
	if st.UpToDate || st.DaysOverdue != 2 || st.DueDate.Format("2006-01-02") != "2026-11-05" {
		t.Fatalf("unexpected standing: %s", rec.Body.String())
	}

	rec = api.do(t, request{method: http.MethodGet, path: "/standing?identifier=ghost@example.com", subject: "staff-1"})
	requireErrorCode(t, rec, http.StatusNotFound, "MEMBER_NOT_FOUND")
}

func TestStaffRoutes_RequireSubject(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	rec := api.do(t, request{method: http.MethodGet, path: "/waitlist"})
	requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
	er := decode[ErrorResponse](t, rec)
	if rid, err := er.Error.RequestId.Get(); err != nil || rid == "" {
		t.Fatalf("expected requestId to be set")
	}

	rec = api.do(t, request{method: http.MethodPost, path: "/checkins/assisted", body: CheckInRequest{Identifier: "12345678901"}})
	requireErrorCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestMembers_PatchAndPayments(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	m := api.register(t, "98765432100", 10, true, "2026-10-10")
	path := "/members/" + m.MemberId

	rec := api.do(t, request{method: http.MethodPatch, path: path, subject: "staff-1", raw: `{"fullName":null}`})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, request{method: http.MethodPatch, path: path, subject: "staff-1", raw: `{"lastPaymentDate":null,"feeDueDay":15}`})
	requireStatus(t, rec, http.StatusOK)
	got := decode[MemberResponse](t, rec).Member
	if !got.LastPaymentDate.IsNull() || got.FeeDueDay != 15 || got.FullName != "Ana Souza" {
		t.Fatalf("unexpected member: %s", rec.Body.String())
	}

	rec = api.do(t, request{method: http.MethodDelete, path: path + "/payments/current", subject: "staff-1"})
	requireStatus(t, rec, http.StatusOK)
	if decode[MemberResponse](t, rec).Member.PaidFlag {
		t.Fatalf("expected unpaid: %s", rec.Body.String())
	}

	rec = api.do(t, request{method: http.MethodPost, path: path + "/payments", subject: "staff-1"})
	requireStatus(t, rec, http.StatusOK)
	got = decode[MemberResponse](t, rec).Member
	if d, err := got.LastPaymentDate.Get(); err != nil || d.Format("2006-01-02") != "2026-10-13" || !got.PaidFlag {
		t.Fatalf("unexpected payment: %s", rec.Body.String())
	}

	rec = api.do(t, request{method: http.MethodPost, path: path + "/payments", subject: "staff-1", body: map[string]string{"paidOn": "2026-12-01"}})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, request{method: http.MethodGet, path: "/members/missing", subject: "staff-1"})
	requireErrorCode(t, rec, http.StatusNotFound, members.CodeMemberNotFound)

	rec = api.do(t, request{method: http.MethodPost, path: "/members", subject: "staff-1", body: map[string]any{
		"fullName": "Other", "nationalId": "98765432100", "email": "other@example.com", "feeDueDay": 1,
	}})
	requireErrorCode(t, rec, http.StatusConflict, members.CodeNationalIDInUse)
}

func TestWaitlist_JoinPromoteRemove(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	var ids []string
	for _, name := range []string{"ana", "bruno", "carla"} {
		rec := api.do(t, request{method: http.MethodPost, path: "/waitlist", body: map[string]any{
			"fullName":       name,
			"email":          name + "@example.com",
			"phone":          "+55 11 91234-5678",
			"preferredShift": "evening",
		}})
		requireStatus(t, rec, http.StatusCreated)
		e := decode[WaitlistEntryResponse](t, rec).Entry
		if e.Position != len(ids)+1 || e.Status != "waiting" {
			t.Fatalf("unexpected entry: %s", rec.Body.String())
		}
		ids = append(ids, e.EntryId)
	}

	rec := api.do(t, request{method: http.MethodPost, path: "/waitlist/" + ids[1] + "/promote", subject: "staff-1", body: PromoteRequest{MemberId: "member-42"}})
	requireStatus(t, rec, http.StatusOK)
	promoted := decode[WaitlistEntryResponse](t, rec).Entry
	if promoted.Status != "enrolled" || promoted.Position != 0 || promoted.EnrolledMemberId == nil || *promoted.EnrolledMemberId != "member-42" {
		t.Fatalf("unexpected promoted entry: %s", rec.Body.String())
	}

	rec = api.do(t, request{method: http.MethodPost, path: "/waitlist/" + ids[1] + "/promote", subject: "staff-1", body: PromoteRequest{MemberId: "member-42"}})
	requireErrorCode(t, rec, http.StatusConflict, waitlist.CodeNotWaiting)

	requireStatus(t, api.do(t, request{method: http.MethodDelete, path: "/waitlist/" + ids[0], subject: "staff-1"}), http.StatusNoContent)

	rec = api.do(t, request{method: http.MethodGet, path: "/waitlist?status=waiting", subject: "staff-1"})
	requireStatus(t, rec, http.StatusOK)
	list := decode[WaitlistResponse](t, rec).Entries
	if len(list) != 1 || list[0].EntryId != ids[2] || list[0].Position != 1 {
		t.Fatalf("unexpected waiting list: %s", rec.Body.String())
	}

	rec = api.do(t, request{method: http.MethodGet, path: "/waitlist/" + ids[0], subject: "staff-1"})
	requireStatus(t, rec, http.StatusOK)
	if e := decode[WaitlistEntryResponse](t, rec).Entry; e.Status != "removed" || e.Position != 0 {
		t.Fatalf("unexpected removed entry: %s", rec.Body.String())
	}
	rec = api.do(t, request{method: http.MethodDelete, path: "/waitlist/" + ids[0], subject: "staff-1"})
	requireErrorCode(t, rec, http.StatusConflict, waitlist.CodeNotWaiting)
	rec = api.do(t, request{method: http.MethodPost, path: "/waitlist/" + ids[0] + "/promote", subject: "staff-1", body: PromoteRequest{MemberId: "member-43"}})
	requireErrorCode(t, rec, http.StatusConflict, waitlist.CodeNotWaiting)

	rec = api.do(t, request{method: http.MethodGet, path: "/waitlist/00000000-0000-0000-0000-000000000000", subject: "staff-1"})
	requireErrorCode(t, rec, http.StatusNotFound, waitlist.CodeEntryNotFound)

	rec = api.do(t, request{method: http.MethodGet, path: "/waitlist?status=archived", subject: "staff-1"})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestWaitlist_JoinValidation(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	rec := api.do(t, request{method: http.MethodPost, path: "/waitlist", body: map[string]any{
		"fullName":       "ana",
		"email":          "nope",
		"phone":          "+55 11 91234-5678",
		"preferredShift": "night",
	}})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	er := decode[ErrorResponse](t, rec)
	details, err := er.Error.Details.Get()
	if err != nil {
		t.Fatalf("expected details: %s", rec.Body.String())
	}
	if _, ok := details["email"]; !ok {
		t.Fatalf("expected email detail: %s", rec.Body.String())
	}
	if _, ok := details["preferredShift"]; !ok {
		t.Fatalf("expected preferredShift detail: %s", rec.Body.String())
	}

	rec = api.do(t, request{method: http.MethodPost, path: "/waitlist", raw: "{"})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, request{method: http.MethodPost, path: "/waitlist", raw: `{"fullName":"ana","unknown":1}`})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestIdempotencyKey_ReplaysAndRejectsReuse(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	join := map[string]any{
		"fullName":       "ana",
		"email":          "ana@example.com",
		"phone":          "+55 11 91234-5678",
		"preferredShift": "morning",
	}
	key := map[string]string{"Idempotency-Key": "join-1"}

	first := api.do(t, request{method: http.MethodPost, path: "/waitlist", body: join, headers: key})
	requireStatus(t, first, http.StatusCreated)
	second := api.do(t, request{method: http.MethodPost, path: "/waitlist", body: join, headers: key})
	requireStatus(t, second, http.StatusCreated)
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}
	if decode[WaitlistEntryResponse](t, first).Entry.EntryId != decode[WaitlistEntryResponse](t, second).Entry.EntryId {
		t.Fatalf("replay returned a different entry")
	}

	join["email"] = "other@example.com"
	rec := api.do(t, request{method: http.MethodPost, path: "/waitlist", body: join, headers: key})
	requireErrorCode(t, rec, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")

	// Without a key the duplicate email reaches the queue guard.
	join["email"] = "ana@example.com"
	rec = api.do(t, request{method: http.MethodPost, path: "/waitlist", body: join})
	requireErrorCode(t, rec, http.StatusConflict, waitlist.CodeAlreadyOnWaitlist)
}

func TestStoreFailure_Is503WithRetryAfter(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)
	api.members.FailWith(errors.New("connection reset"))

	rec := api.do(t, request{method: http.MethodPost, path: "/checkins/self", body: CheckInRequest{Identifier: "12345678901"}})
	requireErrorCode(t, rec, http.StatusServiceUnavailable, "STORE_UNAVAILABLE")
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if len(api.events.Events()) != 0 {
		t.Fatalf("no events expected on store failure")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	requireStatus(t, api.do(t, request{method: http.MethodGet, path: "/healthz"}), http.StatusOK)
	requireStatus(t, api.do(t, request{method: http.MethodPost, path: "/checkins/self", body: CheckInRequest{Identifier: "123"}}), http.StatusOK)

	rec := api.do(t, request{method: http.MethodGet, path: "/metrics"})
	requireStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "frontdesk_checkin_decisions_total") {
		t.Fatalf("expected check-in counter in metrics output")
	}

	requireErrorCode(t, api.do(t, request{method: http.MethodGet, path: "/nope"}), http.StatusNotFound, "NOT_FOUND")
}
