package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/testutils"
	"github.com/itbasis/go-clock"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store    *testutils.FakeStore
	clock    *clock.Mock
	notifier *testutils.RecordingNotifier
	svc      MatchService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func repositoriesOf(store *testutils.FakeStore) Repositories {
	return Repositories{
		Matches:     store.Matches(),
		Clans:       store.Clans(),
		Proposals:   store.Proposals(),
		Submissions: store.Submissions(),
		Rosters:     store.Rosters(),
		PlayerStats: store.PlayerStatsRepo(),
	}
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	clk := testutils.NewMockClock()
	return newHarnessWithStore(t, clk, testutils.Seeded(clk), opts...)
}

func newHarnessWithStore(t *testing.T, clk *clock.Mock, store *testutils.FakeStore, opts ...Option) *harness {
	t.Helper()
	notifier := &testutils.RecordingNotifier{}
	opts = append([]Option{WithNotifier(notifier)}, opts...)
	return &harness{
		store:    store,
		clock:    clk,
		notifier: notifier,
		svc:      NewMatchService(store, repositoriesOf(store), clk, discardLogger(), opts...),
	}
}

func player(wallet string) Actor { return Actor{Wallet: wallet} }

func admin() Actor { return Actor{Wallet: testutils.Admin, Admin: true} }

func intp(v int) *int { return &v }

func perf(wallet string, clanID int64, kills, deaths, assists int) PlayerPerformanceInput {
	return PlayerPerformanceInput{
		PlayerAddress: wallet,
		ClanID:        clanID,
		Kills:         intp(kills),
		Deaths:        intp(deaths),
		Assists:       intp(assists),
	}
}

func mvp(in PlayerPerformanceInput) PlayerPerformanceInput {
	in.MVP = true
	return in
}

// schedule согласовывает время матча: clan1 предлагает, clan2 принимает.
func (h *harness) schedule(t *testing.T, matchID int64, at time.Time) *models.Match {
	t.Helper()
	ctx := context.Background()
	proposal, err := h.svc.ProposeTime(ctx, player(testutils.LeaderA), ProposeTimeInput{MatchID: matchID, ProposedTime: at})
	require.NoError(t, err)
	match, err := h.svc.RespondToTime(ctx, player(testutils.LeaderB), RespondToTimeInput{ProposalID: proposal.ID, Decision: models.DecisionAccept})
	require.NoError(t, err)
	return match
}

// start доводит матч до наступившего согласованного времени.
func (h *harness) start(t *testing.T, matchID int64) {
	t.Helper()
	h.schedule(t, matchID, h.clock.Now().Add(time.Hour))
	h.clock.Add(time.Hour)
}

func (h *harness) submit(t *testing.T, wallet string, score models.Score, perfs ...PlayerPerformanceInput) *models.Match {
	t.Helper()
	match, err := h.svc.SubmitResult(context.Background(), player(wallet), SubmitResultInput{
		MatchID:            testutils.MatchID,
		Score:              &score,
		PlayerPerformances: perfs,
	})
	require.NoError(t, err)
	return match
}

// conflict доводит матч до results_conflict.
func (h *harness) conflict(t *testing.T) *models.Match {
	t.Helper()
	h.start(t, testutils.MatchID)
	h.submit(t, testutils.LeaderA, models.Score{Clan1: 16, Clan2: 10})
	match := h.submit(t, testutils.LeaderB, models.Score{Clan1: 12, Clan2: 16})
	require.Equal(t, models.StatusResultsConflict, match.Status)
	return match
}

func (h *harness) stored(t *testing.T, matchID int64) models.Match {
	t.Helper()
	m, ok := h.store.StoredMatch(matchID)
	require.True(t, ok)
	return m
}
