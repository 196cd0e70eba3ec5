package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/debate-tournament/middleware"
	"github.com/Dosada05/debate-tournament/models"
	"github.com/Dosada05/debate-tournament/notifications"
	"github.com/Dosada05/debate-tournament/repositories"
	"github.com/Dosada05/debate-tournament/services"
	"github.com/Dosada05/debate-tournament/utils"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var testSecret = []byte("handler-test-secret")

type stubTournamentService struct {
	err error

	lastUserID  int
	lastRole    models.UserRole
	lastRound   int
	lastFilter  repositories.ListTournamentsFilter
	lastCreate  services.CreateTournamentInput
	lastReg     services.RegisterParticipantInput
	lastMethod  models.ReseedMethod
	fullFetched bool
}

func (s *stubTournamentService) CreateTournament(ctx context.Context, organizerID int, input services.CreateTournamentInput) (*models.Tournament, error) {
	s.lastUserID, s.lastCreate = organizerID, input
	if s.err != nil {
		return nil, s.err
	}
	return &models.Tournament{ID: 1, Name: input.Name, Format: input.Format, OrganizerID: organizerID}, nil
}

func (s *stubTournamentService) RegisterParticipant(ctx context.Context, tournamentID int, input services.RegisterParticipantInput) (*models.Participant, error) {
	s.lastReg = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.Participant{ID: 9, TournamentID: tournamentID, UserID: input.UserID}, nil
}

func (s *stubTournamentService) StartTournament(ctx context.Context, tournamentID int, userID int, role models.UserRole) (*models.Tournament, error) {
	s.lastUserID, s.lastRole = userID, role
	if s.err != nil {
		return nil, s.err
	}
	return &models.Tournament{ID: tournamentID, Status: models.TournamentInProgress}, nil
}

func (s *stubTournamentService) ReseedParticipants(ctx context.Context, tournamentID int, method models.ReseedMethod, userID int, role models.UserRole) ([]*models.Participant, error) {
	s.lastMethod = method
	return []*models.Participant{{ID: 1, CurrentSeed: 1}}, s.err
}

func (s *stubTournamentService) AdvanceRound(ctx context.Context, tournamentID, roundNumber int, userID int, role models.UserRole) error {
	s.lastRound, s.lastUserID, s.lastRole = roundNumber, userID, role
	return s.err
}

func (s *stubTournamentService) GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Tournament{ID: tournamentID}, nil
}

func (s *stubTournamentService) GetFullTournamentData(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	s.fullFetched = true
	return &models.Tournament{ID: tournamentID}, s.err
}

func (s *stubTournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	s.lastFilter = filter
	return []models.Tournament{}, s.err
}

func (s *stubTournamentService) ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return nil, s.err
}

func testRouter(ts services.TournamentService) http.Handler {
	h := NewTournamentHandler(ts)
	r := chi.NewRouter()
	r.Get("/tournaments", h.ListHandler)
	r.Get("/tournaments/{tournamentID}", h.GetByIDHandler)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		r.Post("/tournaments", h.CreateHandler)
		r.Post("/tournaments/{tournamentID}/participants", h.RegisterHandler)
		r.Post("/tournaments/{tournamentID}/start", h.StartHandler)
		r.Post("/tournaments/{tournamentID}/reseed", h.ReseedHandler)
		r.Post("/tournaments/{tournamentID}/rounds/{roundNumber}/advance", h.AdvanceRoundHandler)
	})
	return r
}

func authorized(t *testing.T, req *http.Request, userID int, role models.UserRole) *http.Request {
	t.Helper()
	token, err := utils.GenerateJWT(testSecret, userID, string(role), time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func do(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrTournamentNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", services.ErrRoundNotFound), http.StatusNotFound},
		{services.ErrRegistrationConflict, http.StatusConflict},
		{services.ErrTournamentFull, http.StatusConflict},
		{services.ErrTournamentCompleted, http.StatusConflict},
		{services.ErrForbiddenOperation, http.StatusForbidden},
		{services.ErrPositionRequired, http.StatusUnprocessableEntity},
		{services.ErrNoJudges, http.StatusUnprocessableEntity},
		{services.ErrCascadeDepthExceeded, http.StatusInternalServerError},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		if rec.Code != tt.want {
			t.Errorf("%v -> %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

func TestCreateHandler(t *testing.T) {
	ts := &stubTournamentService{}
	router := testRouter(ts)

	body := `{"name":"Spring Open","format":"BRACKET","max_participants":8}`
	rec := do(router, authorized(t, httptest.NewRequest(http.MethodPost, "/tournaments", strings.NewReader(body)), 42, models.RoleOrganizer))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ts.lastUserID != 42 || ts.lastCreate.Format != models.FormatBracket || ts.lastCreate.MaxParticipants != 8 {
		t.Fatalf("service got user %d input %+v", ts.lastUserID, ts.lastCreate)
	}

	rec = do(router, httptest.NewRequest(http.MethodPost, "/tournaments", strings.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	for _, bad := range []string{``, `{"name":`, `{"nickname":"x"}`, `{"name":"a"}{"name":"b"}`} {
		rec = do(router, authorized(t, httptest.NewRequest(http.MethodPost, "/tournaments", strings.NewReader(bad)), 42, models.RoleOrganizer))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q status = %d, want 400", bad, rec.Code)
		}
	}

	ts.err = services.ErrTournamentNameRequired
	rec = do(router, authorized(t, httptest.NewRequest(http.MethodPost, "/tournaments", strings.NewReader(body)), 42, models.RoleOrganizer))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("validation status = %d, want 422", rec.Code)
	}
}

func TestRegisterHandlerUsesTokenUser(t *testing.T) {
	ts := &stubTournamentService{}
	router := testRouter(ts)

	req := httptest.NewRequest(http.MethodPost, "/tournaments/3/participants", strings.NewReader(`{"selected_position":"CON"}`))
	token, err := utils.GenerateRatedJWT(testSecret, 77, string(models.RolePlayer), 1650, time.Hour)
	if err != nil {
		t.Fatalf("GenerateRatedJWT: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rec := do(router, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ts.lastReg.UserID != 77 || ts.lastReg.EloRating != 1650 || ts.lastReg.SelectedPosition == nil || *ts.lastReg.SelectedPosition != models.PositionCon {
		t.Fatalf("registration input = %+v", ts.lastReg)
	}
}

func TestRegisterHandlerIgnoresBodyRating(t *testing.T) {
	t.Run("rating in body is rejected", func(t *testing.T) {
		ts := &stubTournamentService{}
		router := testRouter(ts)

		body := `{"elo_rating":999999}`
		rec := do(router, authorized(t, httptest.NewRequest(http.MethodPost, "/tournaments/3/participants", strings.NewReader(body)), 77, models.RolePlayer))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if ts.lastReg.UserID != 0 {
			t.Fatalf("service was called with %+v", ts.lastReg)
		}
	})

	t.Run("token without rating gets the default", func(t *testing.T) {
		ts := &stubTournamentService{}
		router := testRouter(ts)

		rec := do(router, authorized(t, httptest.NewRequest(http.MethodPost, "/tournaments/3/participants", strings.NewReader(`{}`)), 78, models.RolePlayer))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		if ts.lastReg.EloRating != models.DefaultEloRating {
			t.Fatalf("rating = %d, want %d", ts.lastReg.EloRating, models.DefaultEloRating)
		}
	})
}

func TestStartAndAdvanceHandlers(t *testing.T) {
	ts := &stubTournamentService{}
	router := testRouter(ts)

	rec := do(router, authorized(t, httptest.NewRequest(http.MethodPost, "/tournaments/3/start", nil), 5, models.RoleAdmin))
	if rec.Code != http.StatusOK || ts.lastRole != models.RoleAdmin || ts.lastUserID != 5 {
		t.Fatalf("start status=%d role=%s user=%d", rec.Code, ts.lastRole, ts.lastUserID)
	}

	rec = do(router, authorized(t, httptest.NewRequest(http.MethodPost, "/tournaments/3/rounds/2/advance", nil), 5, models.RoleOrganizer))
	if rec.Code != http.StatusOK || ts.lastRound != 2 {
		t.Fatalf("advance status=%d round=%d", rec.Code, ts.lastRound)
	}

	rec = do(router, authorized(t, httptest.NewRequest(http.MethodPost, "/tournaments/3/rounds/zero/advance", nil), 5, models.RoleOrganizer))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad round status = %d, want 400", rec.Code)
	}

	ts.err = services.ErrForbiddenOperation
	rec = do(router, authorized(t, httptest.NewRequest(http.MethodPost, "/tournaments/3/start", nil), 6, models.RoleOrganizer))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("forbidden status = %d, want 403", rec.Code)
	}
}

func TestReseedHandler(t *testing.T) {
	ts := &stubTournamentService{}
	router := testRouter(ts)

	rec := do(router, authorized(t, httptest.NewRequest(http.MethodPost, "/tournaments/3/reseed", strings.NewReader(`{"method":"RANDOM"}`)), 5, models.RoleOrganizer))
	if rec.Code != http.StatusOK || ts.lastMethod != models.ReseedRandom {
		t.Fatalf("status=%d method=%s", rec.Code, ts.lastMethod)
	}

	rec = do(router, authorized(t, httptest.NewRequest(http.MethodPost, "/tournaments/3/reseed", nil), 5, models.RoleOrganizer))
	if rec.Code != http.StatusOK || ts.lastMethod != "" {
		t.Fatalf("empty body status=%d method=%q", rec.Code, ts.lastMethod)
	}
}

func TestListAndGetHandlers(t *testing.T) {
	ts := &stubTournamentService{}
	router := testRouter(ts)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/tournaments?format=KING_OF_THE_HILL&status=IN_PROGRESS&limit=5&offset=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	f := ts.lastFilter
	if f.Format == nil || *f.Format != models.FormatKingOfTheHill || f.Status == nil || *f.Status != models.TournamentInProgress || f.Limit != 5 || f.Offset != 10 {
		t.Fatalf("filter = %+v", f)
	}

	for _, q := range []string{"format=SWISS", "status=DONE", "limit=-1", "offset=x", "organizer_id=0"} {
		if rec := do(router, httptest.NewRequest(http.MethodGet, "/tournaments?"+q, nil)); rec.Code != http.StatusBadRequest {
			t.Errorf("query %q status = %d, want 400", q, rec.Code)
		}
	}

	rec = do(router, httptest.NewRequest(http.MethodGet, "/tournaments/4?full=true", nil))
	if rec.Code != http.StatusOK || !ts.fullFetched {
		t.Fatalf("full fetch status=%d fetched=%v", rec.Code, ts.fullFetched)
	}

	ts.err = services.ErrTournamentNotFound
	if rec := do(router, httptest.NewRequest(http.MethodGet, "/tournaments/4", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("missing tournament status = %d", rec.Code)
	}
}

type stubOutcomes struct {
	got *models.DebateOutcome
	err error
}

func (s *stubOutcomes) HandleDebateOutcome(ctx context.Context, outcome *models.DebateOutcome) error {
	s.got = outcome
	return s.err
}

func TestDebateResolvedHandler(t *testing.T) {
	outcomes := &stubOutcomes{}
	h := NewWebhookHandler(outcomes)

	body := `{"debate_id":"d-1","winner_id":4,"scores":{"4":61.5,"9":40}}`
	rec := do(http.HandlerFunc(h.DebateResolvedHandler), httptest.NewRequest(http.MethodPost, "/webhooks/debates/resolved", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if outcomes.got.DebateID != "d-1" || *outcomes.got.WinnerID != 4 || outcomes.got.Scores[4] != 61.5 || outcomes.got.Scores[9] != 40 {
		t.Fatalf("outcome = %+v", outcomes.got)
	}

	outcomes.err = services.ErrMatchNotFound
	rec = do(http.HandlerFunc(h.DebateResolvedHandler), httptest.NewRequest(http.MethodPost, "/webhooks/debates/resolved", strings.NewReader(body)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown debate status = %d, want 404", rec.Code)
	}

	outcomes.err = services.ErrInvalidOutcome
	rec = do(http.HandlerFunc(h.DebateResolvedHandler), httptest.NewRequest(http.MethodPost, "/webhooks/debates/resolved", strings.NewReader(body)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid outcome status = %d, want 422", rec.Code)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(ctx context.Context) error { return p.err }

func TestHealthz(t *testing.T) {
	rec := do(http.HandlerFunc(NewHealthHandler(stubPinger{}).Healthz), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = do(http.HandlerFunc(NewHealthHandler(stubPinger{err: errors.New("down")}).Healthz), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestWebSocketReceivesTournamentEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := notifications.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ws := NewWebSocketHandler(hub, []string{"*"}, logger)
	r := chi.NewRouter()
	r.Get("/ws/tournaments/{tournamentID}", ws.ServeTournament)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/tournaments/5", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	room := notifications.TournamentRoom(5)
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(room) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never joined the tournament room")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := notifications.NewHubNotifier(hub).TournamentUpdated(ctx, 5, notifications.Event{Type: notifications.EventRoundStarted}); err != nil {
		t.Fatalf("TournamentUpdated: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var event notifications.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.Type != notifications.EventRoundStarted || event.RoomID != room {
		t.Fatalf("event = %+v", event)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if !check(req) {
		t.Fatal("requests without Origin must pass")
	}
	req.Header.Set("Origin", "https://app.example")
	if !check(req) {
		t.Fatal("allowed origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example")
	if check(req) {
		t.Fatal("foreign origin accepted")
	}
}
