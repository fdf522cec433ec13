package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/repositories"
	"github.com/google/uuid"
	"github.com/itbasis/go-clock"
)

type matchStats struct {
	TournamentID int64
	Perfs        []models.PlayerPerformance
}

// state - все данные хранилища. Транзакция откатывается восстановлением копии.
type state struct {
	Matches     map[int64]models.Match
	Clans       map[int64]models.Clan
	Proposals   map[uuid.UUID]models.TimeProposal
	ProposalSeq map[uuid.UUID]int
	NextSeq     int
	Submissions map[int64]map[models.Side]models.ResultSubmission
	Rosters     map[int64][]models.RosterEntry
	Stats       map[int64]matchStats
}

// FakeStore - хранилище в памяти, реализующее все интерфейсы репозиториев
// и TxRunner. Транзакции выполняются строго по одной, как при блокировке
// строки матча.
type FakeStore struct {
	Clock clock.Clock

	txMu   sync.Mutex
	mu     sync.Mutex
	data   state
	failOn map[string]error
}

func NewFakeStore(clk clock.Clock) *FakeStore {
	return &FakeStore{
		Clock: clk,
		data: state{
			Matches:     map[int64]models.Match{},
			Clans:       map[int64]models.Clan{},
			Proposals:   map[uuid.UUID]models.TimeProposal{},
			ProposalSeq: map[uuid.UUID]int{},
			Submissions: map[int64]map[models.Side]models.ResultSubmission{},
			Rosters:     map[int64][]models.RosterEntry{},
			Stats:       map[int64]matchStats{},
		},
		failOn: map[string]error{},
	}
}

func clone[T any](v T) T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutils: clone marshal: %v", err))
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("testutils: clone unmarshal: %v", err))
	}
	return out
}

// FailNext заставляет следующий вызов операции op вернуть err.
// op - имя в виде "Matches.Update", "Submissions.Upsert" и т.п.
func (s *FakeStore) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[op] = err
}

func (s *FakeStore) injected(op string) error {
	if err, ok := s.failOn[op]; ok {
		delete(s.failOn, op)
		return err
	}
	return nil
}

func (s *FakeStore) now() time.Time {
	return s.Clock.Now().UTC()
}

// WithinTx реализует repositories.TxRunner.
func (s *FakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context, exec repositories.SQLExecutor) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := clone(s.data)
	s.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// --- Наполнение ---

func (s *FakeStore) AddClan(c models.Clan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.data.Clans[c.ID] = clone(c)
}

func (s *FakeStore) AddMatch(m models.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
		m.UpdatedAt = m.CreatedAt
	}
	s.data.Matches[m.ID] = clone(m)
}

func (s *FakeStore) AddRosterEntry(e models.RosterEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.data.Rosters[e.MatchID] = append(s.data.Rosters[e.MatchID], e)
}

// StoredMatch возвращает матч как он сохранен, без вывода статуса.
func (s *FakeStore) StoredMatch(id int64) (models.Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data.Matches[id]
	return clone(m), ok
}

// AllProposals возвращает все предложения матча, включая закрытые.
func (s *FakeStore) AllProposals(matchID int64) []models.TimeProposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TimeProposal
	for _, p := range s.data.Proposals {
		if p.MatchID == matchID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.data.ProposalSeq[out[i].ID] < s.data.ProposalSeq[out[j].ID] })
	return out
}

func (s *FakeStore) PlayerStats(matchID int64) []models.PlayerPerformance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.data.Stats[matchID].Perfs)
}

// --- Репозитории ---

func (s *FakeStore) Matches() repositories.MatchRepository         { return fakeMatches{s} }
func (s *FakeStore) Clans() repositories.ClanRepository             { return fakeClans{s} }
func (s *FakeStore) Proposals() repositories.ProposalRepository     { return fakeProposals{s} }
func (s *FakeStore) Submissions() repositories.SubmissionRepository { return fakeSubmissions{s} }
func (s *FakeStore) Rosters() repositories.RosterRepository         { return fakeRosters{s} }
func (s *FakeStore) PlayerStatsRepo() repositories.PlayerStatsRepository {
	return fakePlayerStats{s}
}

type fakeMatches struct{ s *FakeStore }

func (r fakeMatches) GetByID(_ context.Context, _ repositories.SQLExecutor, id int64) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("Matches.GetByID"); err != nil {
		return nil, err
	}
	m, ok := r.s.data.Matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	out := clone(m)
	return &out, nil
}

func (r fakeMatches) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int64) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r fakeMatches) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int64) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.data.Matches {
		if m.TournamentID == tournamentID {
			c := clone(m)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeMatches) ListScheduledBetween(_ context.Context, _ repositories.SQLExecutor, from, to time.Time) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.data.Matches {
		if m.Status != models.StatusReady || m.ScheduledAt == nil {
			continue
		}
		if m.ScheduledAt.After(from) && !m.ScheduledAt.After(to) {
			c := clone(m)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	return out, nil
}

func (r fakeMatches) Update(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("Matches.Update"); err != nil {
		return err
	}
	if _, ok := r.s.data.Matches[match.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	stored := clone(*match)
	// Связанные сущности в строке матча не хранятся.
	stored.Clan1, stored.Clan2, stored.ResultsSubmissions = nil, nil, nil
	r.s.data.Matches[match.ID] = stored
	return nil
}

type fakeClans struct{ s *FakeStore }

func (r fakeClans) GetByID(_ context.Context, _ repositories.SQLExecutor, id int64) (*models.Clan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.Clans[id]
	if !ok {
		return nil, repositories.ErrClanNotFound
	}
	out := clone(c)
	return &out, nil
}

type fakeProposals struct{ s *FakeStore }

func (r fakeProposals) Create(_ context.Context, _ repositories.SQLExecutor, p *models.TimeProposal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("Proposals.Create"); err != nil {
		return err
	}
	if _, ok := r.s.data.Matches[p.MatchID]; !ok {
		return repositories.ErrProposalMatchInvalid
	}
	for _, existing := range r.s.data.Proposals {
		if existing.MatchID == p.MatchID && existing.Status == models.ProposalPending && p.Status == models.ProposalPending {
			return repositories.ErrProposalPendingConflict
		}
	}
	p.CreatedAt = r.s.now()
	r.s.data.NextSeq++
	r.s.data.ProposalSeq[p.ID] = r.s.data.NextSeq
	r.s.data.Proposals[p.ID] = clone(*p)
	return nil
}

func (r fakeProposals) GetByID(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID) (*models.TimeProposal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.Proposals[id]
	if !ok {
		return nil, repositories.ErrProposalNotFound
	}
	out := clone(p)
	return &out, nil
}

func (r fakeProposals) GetPending(_ context.Context, _ repositories.SQLExecutor, matchID int64) (*models.TimeProposal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.data.Proposals {
		if p.MatchID == matchID && p.Status == models.ProposalPending {
			out := clone(p)
			return &out, nil
		}
	}
	return nil, repositories.ErrProposalNotFound
}

func (r fakeProposals) ListByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int64, status *models.ProposalStatus) ([]*models.TimeProposal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.TimeProposal, 0)
	for _, p := range r.s.data.Proposals {
		if p.MatchID != matchID || (status != nil && p.Status != *status) {
			continue
		}
		c := clone(p)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return r.s.data.ProposalSeq[out[i].ID] > r.s.data.ProposalSeq[out[j].ID]
	})
	return out, nil
}

func (r fakeProposals) Close(_ context.Context, _ repositories.SQLExecutor, id uuid.UUID, status models.ProposalStatus, respondedBy *string, respondedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.Proposals[id]
	if !ok || p.Status != models.ProposalPending {
		return repositories.ErrProposalNotFound
	}
	p.Status = status
	if respondedBy != nil {
		by := *respondedBy
		p.RespondedBy = &by
	}
	at := respondedAt
	p.RespondedAt = &at
	r.s.data.Proposals[id] = p
	return nil
}

type fakeSubmissions struct{ s *FakeStore }

func (r fakeSubmissions) Upsert(_ context.Context, _ repositories.SQLExecutor, sub *models.ResultSubmission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("Submissions.Upsert"); err != nil {
		return err
	}
	if _, ok := r.s.data.Matches[sub.MatchID]; !ok {
		return repositories.ErrSubmissionMatchInvalid
	}
	bySide, ok := r.s.data.Submissions[sub.MatchID]
	if !ok {
		bySide = map[models.Side]models.ResultSubmission{}
		r.s.data.Submissions[sub.MatchID] = bySide
	}
	bySide[sub.Side] = clone(*sub)
	return nil
}

func (r fakeSubmissions) ListByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int64) ([]*models.ResultSubmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.ResultSubmission, 0, 2)
	for _, side := range []models.Side{models.SideClan1, models.SideClan2} {
		if sub, ok := r.s.data.Submissions[matchID][side]; ok {
			c := clone(sub)
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeRosters struct{ s *FakeStore }

func (r fakeRosters) ListConfirmed(_ context.Context, _ repositories.SQLExecutor, matchID int64) ([]models.RosterEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.RosterEntry, 0)
	for _, e := range r.s.data.Rosters[matchID] {
		if e.Confirmed {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClanID < out[j].ClanID })
	return out, nil
}

type fakePlayerStats struct{ s *FakeStore }

func (r fakePlayerStats) ReplaceForMatch(_ context.Context, _ repositories.SQLExecutor, tournamentID, matchID int64, perfs []models.PlayerPerformance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("PlayerStats.ReplaceForMatch"); err != nil {
		return err
	}
	r.s.data.Stats[matchID] = matchStats{TournamentID: tournamentID, Perfs: clone(perfs)}
	return nil
}

func (r fakePlayerStats) Leaderboard(_ context.Context, _ repositories.SQLExecutor, tournamentID int64, limit int) ([]models.PlayerTotals, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byPlayer := map[string]*models.PlayerTotals{}
	for _, st := range r.s.data.Stats {
		if st.TournamentID != tournamentID {
			continue
		}
		for _, p := range st.Perfs {
			t, ok := byPlayer[p.PlayerAddress]
			if !ok {
				t = &models.PlayerTotals{PlayerAddress: p.PlayerAddress}
				byPlayer[p.PlayerAddress] = t
			}
			if p.DisplayName > t.DisplayName {
				t.DisplayName = p.DisplayName
			}
			t.Matches++
			t.Kills += p.Kills
			t.Deaths += p.Deaths
			t.Assists += p.Assists
			t.TotalScore += p.Score
			if p.MVP {
				t.MVPs++
			}
		}
	}
	out := make([]models.PlayerTotals, 0, len(byPlayer))
	for _, t := range byPlayer {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].PlayerAddress < out[j].PlayerAddress
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
