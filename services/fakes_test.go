package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dosada05/debate-tournament/brackets"
	"github.com/Dosada05/debate-tournament/debates"
	"github.com/Dosada05/debate-tournament/models"
	"github.com/Dosada05/debate-tournament/notifications"
	"github.com/Dosada05/debate-tournament/repositories"
	"github.com/Dosada05/debate-tournament/storage"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu           sync.Mutex
	tournaments  map[int]*models.Tournament
	participants map[int]*models.Participant
	rounds       map[int]*models.Round
	matches      map[int]*models.Match
	scores       []*models.JudgeScore
	seq          map[string]int

	txDepth atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{
		tournaments:  map[int]*models.Tournament{},
		participants: map[int]*models.Participant{},
		rounds:       map[int]*models.Round{},
		matches:      map[int]*models.Match{},
		seq:          map[string]int{},
	}
}

func (s *memStore) next(table string) int {
	s.seq[table]++
	return s.seq[table]
}

func cloneTournament(t *models.Tournament) *models.Tournament {
	c := *t
	return &c
}

func cloneParticipant(p *models.Participant) *models.Participant {
	c := *p
	return &c
}

func cloneRound(r *models.Round) *models.Round {
	c := *r
	return &c
}

func cloneMatch(m *models.Match) *models.Match {
	c := *m
	if m.GroupParticipantIDs != nil {
		c.GroupParticipantIDs = append([]int(nil), m.GroupParticipantIDs...)
	}
	if m.ScoreBreakdown != nil {
		c.ScoreBreakdown = make(models.ScoreBreakdown, len(m.ScoreBreakdown))
		for id, judges := range m.ScoreBreakdown {
			inner := make(map[string]float64, len(judges))
			for k, v := range judges {
				inner[k] = v
			}
			c.ScoreBreakdown[id] = inner
		}
	}
	return &c
}

// snapshot deep copies the store so a failed transaction can be undone.
func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := newMemStore()
	for id, t := range s.tournaments {
		c.tournaments[id] = cloneTournament(t)
	}
	for id, p := range s.participants {
		c.participants[id] = cloneParticipant(p)
	}
	for id, r := range s.rounds {
		c.rounds[id] = cloneRound(r)
	}
	for id, m := range s.matches {
		c.matches[id] = cloneMatch(m)
	}
	for _, v := range s.scores {
		score := *v
		c.scores = append(c.scores, &score)
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments = from.tournaments
	s.participants = from.participants
	s.rounds = from.rounds
	s.matches = from.matches
	s.scores = from.scores
	s.seq = from.seq
}

// fakeTransactor rolls the store back when fn fails.
type fakeTransactor struct{ s *memStore }

func (tx fakeTransactor) WithinTransaction(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	saved := tx.s.snapshot()
	tx.s.txDepth.Add(1)
	defer tx.s.txDepth.Add(-1)
	if err := fn(nil); err != nil {
		tx.s.restore(saved)
		return err
	}
	return nil
}

// --- tournaments ---

type fakeTournamentRepo struct{ s *memStore }

func (r fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tournaments {
		if existing.OrganizerID == t.OrganizerID && existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	t.ID = r.s.next("tournaments")
	t.CreatedAt = baseTime
	r.s.tournaments[t.ID] = cloneTournament(t)
	return nil
}

func (r fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

func (r fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Tournament{}
	for _, t := range r.s.tournaments {
		if filter.Format != nil && t.Format != *filter.Format {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.OrganizerID != nil && t.OrganizerID != *filter.OrganizerID {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Offset >= len(out) {
		return []models.Tournament{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r fakeTournamentRepo) LockForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r fakeTournamentRepo) Start(ctx context.Context, exec repositories.SQLExecutor, id int, totalRounds int, startedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.Status != models.TournamentUpcoming {
		return false, nil
	}
	t.Status = models.TournamentInProgress
	t.TotalRounds = totalRounds
	t.StartDate = &startedAt
	return true, nil
}

func (r fakeTournamentRepo) Complete(ctx context.Context, exec repositories.SQLExecutor, id int, championParticipantID *int, endedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok || t.Status == models.TournamentCompleted {
		return false, nil
	}
	t.Status = models.TournamentCompleted
	t.ChampionParticipantID = championParticipantID
	t.EndDate = &endedAt
	return true, nil
}

func (r fakeTournamentRepo) ListInProgress(ctx context.Context) ([]*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Tournament
	for _, t := range r.s.tournaments {
		if t.Status == models.TournamentInProgress {
			out = append(out, cloneTournament(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- participants ---

type fakeParticipantRepo struct{ s *memStore }

func (r fakeParticipantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tournaments[p.TournamentID]; !ok {
		return repositories.ErrParticipantTournamentInvalid
	}
	for _, existing := range r.s.participants {
		if existing.TournamentID == p.TournamentID && existing.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.s.next("participants")
	p.CreatedAt = baseTime.Add(time.Duration(p.ID) * time.Minute)
	r.s.participants[p.ID] = cloneParticipant(p)
	return nil
}

func (r fakeParticipantRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	return cloneParticipant(p), nil
}

func (r fakeParticipantRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, statusFilter *models.ParticipantStatus) ([]*models.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Participant{}
	for _, p := range r.s.participants {
		if p.TournamentID != tournamentID {
			continue
		}
		if statusFilter != nil && p.Status != *statusFilter {
			continue
		}
		out = append(out, cloneParticipant(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeParticipantRepo) UpdateSeeds(ctx context.Context, exec repositories.SQLExecutor, participants []*models.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range participants {
		stored, ok := r.s.participants[p.ID]
		if !ok {
			return repositories.ErrParticipantNotFound
		}
		stored.Seed = p.Seed
		stored.CurrentSeed = p.CurrentSeed
	}
	return nil
}

func (r fakeParticipantRepo) Activate(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.participants {
		if p.TournamentID == tournamentID && p.Status == models.ParticipantRegistered {
			p.Status = models.ParticipantActive
			n++
		}
	}
	return n, nil
}

func (r fakeParticipantRepo) Eliminate(ctx context.Context, exec repositories.SQLExecutor, id int, round int, reason models.EliminationReason, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok || p.Status != models.ParticipantActive {
		return false, nil
	}
	p.Status = models.ParticipantEliminated
	p.EliminationRound = &round
	p.EliminationReason = &reason
	p.EliminatedAt = &at
	return true, nil
}

func (r fakeParticipantRepo) RecordResult(ctx context.Context, exec repositories.SQLExecutor, id int, winsDelta, lossesDelta int, scoreDelta float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Wins += winsDelta
	p.Losses += lossesDelta
	p.CumulativeScore += scoreDelta
	return nil
}

func (r fakeParticipantRepo) AddCumulativeScore(ctx context.Context, exec repositories.SQLExecutor, id int, delta float64) error {
	return r.RecordResult(ctx, exec, id, 0, 0, delta)
}

// --- rounds ---

type fakeRoundRepo struct{ s *memStore }

func (r fakeRoundRepo) GetOrCreate(ctx context.Context, exec repositories.SQLExecutor, tournamentID, roundNumber int) (*models.Round, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rd := range r.s.rounds {
		if rd.TournamentID == tournamentID && rd.RoundNumber == roundNumber {
			return cloneRound(rd), false, nil
		}
	}
	rd := &models.Round{
		ID:           r.s.next("rounds"),
		TournamentID: tournamentID,
		RoundNumber:  roundNumber,
		Status:       models.RoundUpcoming,
		CreatedAt:    baseTime,
	}
	r.s.rounds[rd.ID] = rd
	return cloneRound(rd), true, nil
}

func (r fakeRoundRepo) GetByNumber(ctx context.Context, exec repositories.SQLExecutor, tournamentID, roundNumber int) (*models.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rd := range r.s.rounds {
		if rd.TournamentID == tournamentID && rd.RoundNumber == roundNumber {
			return cloneRound(rd), nil
		}
	}
	return nil, repositories.ErrRoundNotFound
}

func (r fakeRoundRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Round{}
	for _, rd := range r.s.rounds {
		if rd.TournamentID == tournamentID {
			out = append(out, cloneRound(rd))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

func (r fakeRoundRepo) MarkInProgress(ctx context.Context, exec repositories.SQLExecutor, id int, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rd, ok := r.s.rounds[id]
	if !ok || rd.Status != models.RoundUpcoming {
		return false, nil
	}
	rd.Status = models.RoundInProgress
	rd.StartedAt = &at
	return true, nil
}

func (r fakeRoundRepo) MarkCompleted(ctx context.Context, exec repositories.SQLExecutor, id int, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rd, ok := r.s.rounds[id]
	if !ok || rd.Status == models.RoundCompleted {
		return false, nil
	}
	rd.Status = models.RoundCompleted
	rd.CompletedAt = &at
	return true, nil
}

// --- matches ---

type fakeMatchRepo struct{ s *memStore }

func (r fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.matches {
		if existing.RoundID == m.RoundID && existing.OrderInRound == m.OrderInRound {
			return repositories.ErrMatchSlotConflict
		}
	}
	m.ID = r.s.next("matches")
	m.CreatedAt = baseTime
	r.s.matches[m.ID] = cloneMatch(m)
	return nil
}

func (r fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return cloneMatch(m), nil
}

func (r fakeMatchRepo) GetByDebateID(ctx context.Context, exec repositories.SQLExecutor, debateID string) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.matches {
		if m.DebateID != nil && *m.DebateID == debateID {
			return cloneMatch(m), nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r fakeMatchRepo) list(keep func(m *models.Match) bool) []*models.Match {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Match{}
	for _, m := range r.s.matches {
		if keep(m) {
			out = append(out, cloneMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		return out[i].OrderInRound < out[j].OrderInRound
	})
	return out
}

func (r fakeMatchRepo) ListByRound(ctx context.Context, exec repositories.SQLExecutor, roundID int) ([]*models.Match, error) {
	return r.list(func(m *models.Match) bool { return m.RoundID == roundID }), nil
}

func (r fakeMatchRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	return r.list(func(m *models.Match) bool { return m.TournamentID == tournamentID }), nil
}

func (r fakeMatchRepo) ListMissingDebate(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	return r.list(func(m *models.Match) bool {
		return m.TournamentID == tournamentID && m.Status == models.MatchScheduled && m.DebateID == nil
	}), nil
}

func (r fakeMatchRepo) AttachDebate(ctx context.Context, exec repositories.SQLExecutor, matchID int, debateID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[matchID]
	if !ok || m.DebateID != nil {
		return false, nil
	}
	m.DebateID = &debateID
	m.Status = models.MatchInProgress
	return true, nil
}

func (r fakeMatchRepo) Complete(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.matches[m.ID]
	if !ok || stored.Status == models.MatchCompleted {
		return false, nil
	}
	c := cloneMatch(m)
	c.DebateID = stored.DebateID
	r.s.matches[m.ID] = c
	return true, nil
}

// --- judge scores ---

type fakeJudgeScoreRepo struct{ s *memStore }

func (r fakeJudgeScoreRepo) ExistsForDebate(ctx context.Context, exec repositories.SQLExecutor, debateID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.scores {
		if v.DebateID == debateID {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeJudgeScoreRepo) BatchCreate(ctx context.Context, exec repositories.SQLExecutor, scores []*models.JudgeScore) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inserted := 0
	for _, v := range scores {
		duplicate := false
		for _, existing := range r.s.scores {
			if existing.DebateID == v.DebateID && existing.ParticipantID == v.ParticipantID && existing.JudgeID == v.JudgeID {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		c := *v
		c.ID = r.s.next("judge_scores")
		r.s.scores = append(r.s.scores, &c)
		inserted++
	}
	return inserted, nil
}

func (r fakeJudgeScoreRepo) ListByDebate(ctx context.Context, exec repositories.SQLExecutor, debateID string) ([]*models.JudgeScore, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.JudgeScore{}
	for _, v := range r.s.scores {
		if v.DebateID == debateID {
			c := *v
			out = append(out, &c)
		}
	}
	return out, nil
}

// --- external collaborators ---

type fakeDebateClient struct {
	mu       sync.Mutex
	requests []debates.DebateRequest
	fail     error
}

func (c *fakeDebateClient) CreateDebate(ctx context.Context, req debates.DebateRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return "", c.fail
	}
	c.requests = append(c.requests, req)
	return fmt.Sprintf("debate-%d", req.MatchID), nil
}

func (c *fakeDebateClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// fakeJudgePool reads scores from the submission text: "a,b,c" gives judge
// j1 the score a, j2 the score b and so on.
type fakeJudgePool struct {
	mu     sync.Mutex
	judges []models.Judge
	calls  int
	// callsInTx counts scoring calls made while a transaction was open.
	callsInTx int
	store     *memStore
}

func newJudgePool(n int) *fakeJudgePool {
	pool := &fakeJudgePool{}
	for i := 1; i <= n; i++ {
		pool.judges = append(pool.judges, models.Judge{ID: fmt.Sprintf("j%d", i), Name: fmt.Sprintf("Judge %d", i)})
	}
	return pool
}

func (p *fakeJudgePool) ListJudges(ctx context.Context) ([]models.Judge, error) {
	return p.judges, nil
}

func (p *fakeJudgePool) ScoreSubmissions(ctx context.Context, judgeID string, submissions map[int]string) (map[int]int, error) {
	p.mu.Lock()
	p.calls++
	if p.store != nil && p.store.txDepth.Load() > 0 {
		p.callsInTx++
	}
	p.mu.Unlock()

	column, err := strconv.Atoi(strings.TrimPrefix(judgeID, "j"))
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(submissions))
	for id, text := range submissions {
		parts := strings.Split(text, ",")
		if column-1 < len(parts) {
			score, err := strconv.Atoi(strings.TrimSpace(parts[column-1]))
			if err == nil {
				out[id] = score
			}
		}
	}
	return out, nil
}

func (p *fakeJudgePool) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeBeltHook struct {
	mu     sync.Mutex
	events []models.TournamentCompletedEvent
	fail   error
}

func (b *fakeBeltHook) TournamentCompleted(ctx context.Context, event models.TournamentCompletedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return b.fail
}

type fakeNotifier struct {
	mu          sync.Mutex
	tournament  []notifications.Event
	participant map[int][]notifications.Event
	fail        error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{participant: map[int][]notifications.Event{}}
}

func (n *fakeNotifier) TournamentUpdated(ctx context.Context, tournamentID int, event notifications.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tournament = append(n.tournament, event)
	return n.fail
}

func (n *fakeNotifier) NotifyParticipant(ctx context.Context, userID int, event notifications.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.participant[userID] = append(n.participant[userID], event)
	return n.fail
}

func (n *fakeNotifier) count(eventType notifications.EventType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, e := range n.tournament {
		if e.Type == eventType {
			total++
		}
	}
	return total
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    error
}

func (u *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.fail != nil {
		return nil, u.fail
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key), ETag: "etag"}, nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

// --- harness ---

const organizerID = 500

type harness struct {
	store       *memStore
	repos       Repositories
	debates     *fakeDebateClient
	judges      *fakeJudgePool
	notifier    *fakeNotifier
	belt        *fakeBeltHook
	uploader    *fakeUploader
	tiebreaker  *brackets.Tiebreaker
	seeding     *SeedingService
	judging     *JudgingService
	completion  *CompletionService
	advancement *AdvancementService
	tournaments TournamentService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	h := &harness{
		store: store,
		repos: Repositories{
			Transactor:   fakeTransactor{store},
			Tournaments:  fakeTournamentRepo{store},
			Participants: fakeParticipantRepo{store},
			Rounds:       fakeRoundRepo{store},
			Matches:      fakeMatchRepo{store},
			JudgeScores:  fakeJudgeScoreRepo{store},
		},
		debates:  &fakeDebateClient{},
		judges:   newJudgePool(3),
		notifier: newFakeNotifier(),
		belt:     &fakeBeltHook{},
		uploader: &fakeUploader{},
	}
	h.judges.store = store
	logger := testLogger()
	h.tiebreaker = brackets.NewTiebreaker(rand.New(rand.NewSource(7)), logger)
	h.seeding = NewSeedingService(h.repos, rand.New(rand.NewSource(3)), logger)
	h.judging = NewJudgingService(h.judges, h.repos.JudgeScores, rand.New(rand.NewSource(5)), logger)
	h.completion = NewCompletionService(h.repos, h.belt, h.notifier, NewResultArchiver(h.uploader, logger), h.tiebreaker, logger)
	h.advancement = NewAdvancementService(h.repos, h.judging, h.seeding, h.completion, h.debates, h.notifier, h.tiebreaker, DefaultMaxCascadeDepth, logger)
	h.tournaments = NewTournamentService(h.repos, h.seeding, h.advancement, h.notifier, h.tiebreaker, logger)
	return h
}

// createTournament registers n participants; user i has ELO 2000-10*i so
// participant i ends up with seed i. CHAMPIONSHIP alternates PRO and CON.
func (h *harness) createTournament(t *testing.T, format models.TournamentFormat, n, capacity int) *models.Tournament {
	t.Helper()
	ctx := context.Background()
	tour, err := h.tournaments.CreateTournament(ctx, organizerID, CreateTournamentInput{
		Name:            fmt.Sprintf("%s open", format),
		Format:          format,
		MaxParticipants: capacity,
	})
	if err != nil {
		t.Fatalf("CreateTournament: %v", err)
	}
	for i := 1; i <= n; i++ {
		input := RegisterParticipantInput{UserID: 100 + i, EloRating: 2000 - 10*i}
		if format == models.FormatChampionship {
			pos := models.PositionPro
			if i%2 == 0 {
				pos = models.PositionCon
			}
			input.SelectedPosition = &pos
		}
		if _, err := h.tournaments.RegisterParticipant(ctx, tour.ID, input); err != nil {
			t.Fatalf("RegisterParticipant(%d): %v", i, err)
		}
	}
	return tour
}

func (h *harness) start(t *testing.T, tournamentID int) *models.Tournament {
	t.Helper()
	tour, err := h.tournaments.StartTournament(context.Background(), tournamentID, organizerID, models.RoleOrganizer)
	if err != nil {
		t.Fatalf("StartTournament: %v", err)
	}
	return tour
}

func (h *harness) roundMatches(t *testing.T, tournamentID, roundNumber int) []*models.Match {
	t.Helper()
	round, err := h.repos.Rounds.GetByNumber(context.Background(), nil, tournamentID, roundNumber)
	if err != nil {
		t.Fatalf("round %d: %v", roundNumber, err)
	}
	matches, _ := h.repos.Matches.ListByRound(context.Background(), nil, round.ID)
	return matches
}

func (h *harness) participant(t *testing.T, id int) *models.Participant {
	t.Helper()
	p, err := h.repos.Participants.GetByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("participant %d: %v", id, err)
	}
	return p
}

func (h *harness) tournament(t *testing.T, id int) *models.Tournament {
	t.Helper()
	tour, err := h.repos.Tournaments.GetByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("tournament %d: %v", id, err)
	}
	return tour
}

func (h *harness) resolve(t *testing.T, m *models.Match, outcome models.DebateOutcome) {
	t.Helper()
	if m.DebateID == nil {
		t.Fatalf("match %d has no debate", m.ID)
	}
	outcome.DebateID = *m.DebateID
	if err := h.advancement.HandleDebateOutcome(context.Background(), &outcome); err != nil {
		t.Fatalf("HandleDebateOutcome(match %d): %v", m.ID, err)
	}
}

func (h *harness) win(t *testing.T, m *models.Match, winnerID int) {
	t.Helper()
	h.resolve(t, m, models.DebateOutcome{WinnerID: &winnerID})
}

func (h *harness) counts() (rounds, matches, verdicts int) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return len(h.store.rounds), len(h.store.matches), len(h.store.scores)
}

func pairIDs(m *models.Match) [2]int {
	var out [2]int
	if m.Participant1ID != nil {
		out[0] = *m.Participant1ID
	}
	if m.Participant2ID != nil {
		out[1] = *m.Participant2ID
	}
	return out
}

var errBoom = errors.New("boom")
