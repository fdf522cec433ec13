package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/repositories"
	"github.com/Dosada05/tundra-matches/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetMatchDerivesActive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.schedule(t, testutils.MatchID, testutils.Epoch.Add(30*time.Minute))

	match, err := h.svc.GetMatch(ctx, testutils.MatchID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, match.Status)
	require.NotNil(t, match.Clan1)
	require.NotNil(t, match.Clan2)
	assert.Equal(t, "FRB", match.Clan1.Tag)
	assert.Equal(t, "PMF", match.Clan2.Tag)
	assert.Empty(t, match.ResultsSubmissions)

	h.clock.Add(30 * time.Minute)
	match, err = h.svc.GetMatch(ctx, testutils.MatchID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, match.Status)

	// Хранимый статус не меняется, active только выводится.
	assert.Equal(t, models.StatusReady, h.stored(t, testutils.MatchID).Status)
}

func TestGetMatchNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.GetMatch(context.Background(), 999)
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTournamentMatches(t *testing.T) {
	ctx := context.Background()
	clk := testutils.NewMockClock()
	store := testutils.Seeded(clk)
	store.AddMatch(testutils.NewMatch(101))
	other := testutils.NewMatch(102)
	other.TournamentID = 8
	store.AddMatch(other)

	h := newHarnessWithStore(t, clk, store)
	h.schedule(t, testutils.MatchID, testutils.Epoch.Add(time.Hour))
	h.clock.Add(2 * time.Hour)

	all, err := h.svc.ListTournamentMatches(ctx, testutils.TournamentID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.StatusActive, all[0].Status)
	assert.Equal(t, models.StatusScheduling, all[1].Status)

	tests := map[models.MatchStatus][]int64{
		models.StatusActive:     {testutils.MatchID},
		models.StatusScheduling: {101},
		models.StatusReady:      {},
	}
	for status, wantIDs := range tests {
		t.Run(string(status), func(t *testing.T) {
			s := status
			matches, err := h.svc.ListTournamentMatches(ctx, testutils.TournamentID, &s)
			require.NoError(t, err)
			ids := make([]int64, 0, len(matches))
			for _, m := range matches {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, wantIDs, ids)
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		s := models.MatchStatus("in_progress")
		_, err := h.svc.ListTournamentMatches(ctx, testutils.TournamentID, &s)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestGetRoster(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.AddRosterEntry(models.RosterEntry{MatchID: testutils.MatchID, ClanID: testutils.ClanAID, WalletAddress: testutils.LeaderA, DisplayName: "alpha", Confirmed: true})
	h.store.AddRosterEntry(models.RosterEntry{MatchID: testutils.MatchID, ClanID: testutils.ClanAID, WalletAddress: testutils.MemberA, DisplayName: "charlie"})
	h.store.AddRosterEntry(models.RosterEntry{MatchID: testutils.MatchID, ClanID: testutils.ClanBID, WalletAddress: testutils.LeaderB, DisplayName: "delta", Confirmed: true})

	roster, err := h.svc.GetRoster(ctx, testutils.MatchID)
	require.NoError(t, err)
	assert.Equal(t, testutils.MatchID, roster.MatchID)
	require.Len(t, roster.Clan1, 1)
	assert.Equal(t, testutils.LeaderA, roster.Clan1[0].WalletAddress)
	require.Len(t, roster.Clan2, 1)
	assert.Equal(t, "delta", roster.Clan2[0].DisplayName)

	t.Run("empty sides", func(t *testing.T) {
		clk := testutils.NewMockClock()
		h := newHarnessWithStore(t, clk, testutils.Seeded(clk))
		roster, err := h.svc.GetRoster(ctx, testutils.MatchID)
		require.NoError(t, err)
		assert.NotNil(t, roster.Clan1)
		assert.NotNil(t, roster.Clan2)
		assert.Empty(t, roster.Clan1)
	})

	t.Run("unknown match", func(t *testing.T) {
		_, err := h.svc.GetRoster(ctx, 999)
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})
}

func TestLeaderboardAggregatesCompletedMatches(t *testing.T) {
	ctx := context.Background()
	clk := testutils.NewMockClock()
	store := testutils.Seeded(clk)
	store.AddMatch(testutils.NewMatch(101))
	h := newHarnessWithStore(t, clk, store)

	for _, id := range []int64{testutils.MatchID, 101} {
		_, err := h.svc.MarkActive(ctx, admin(), id)
		require.NoError(t, err)
		for _, wallet := range []string{testutils.LeaderA, testutils.LeaderB} {
			score := models.Score{Clan1: 16, Clan2: 10}
			_, err := h.svc.SubmitResult(ctx, player(wallet), SubmitResultInput{
				MatchID: id,
				Score:   &score,
				PlayerPerformances: []PlayerPerformanceInput{
					perf(testutils.LeaderA, testutils.ClanAID, 10, 2, 0),
					perf(testutils.LeaderB, testutils.ClanBID, 4, 6, 2),
				},
			})
			require.NoError(t, err)
		}
	}

	board, err := h.svc.Leaderboard(ctx, testutils.TournamentID, 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, testutils.LeaderA, board[0].PlayerAddress)
	assert.Equal(t, 2, board[0].Matches)
	assert.Equal(t, 20, board[0].Kills)
	assert.Equal(t, 2, board[0].MVPs)
	assert.Equal(t, 2*models.PerformanceScore(10, 2, 0), board[0].TotalScore)
	assert.Equal(t, 0, board[1].MVPs)
}

type mockPlayerStats struct {
	mock.Mock
}

func (m *mockPlayerStats) ReplaceForMatch(ctx context.Context, exec repositories.SQLExecutor, tournamentID, matchID int64, perfs []models.PlayerPerformance) error {
	return m.Called(ctx, exec, tournamentID, matchID, perfs).Error(0)
}

func (m *mockPlayerStats) Leaderboard(ctx context.Context, exec repositories.SQLExecutor, tournamentID int64, limit int) ([]models.PlayerTotals, error) {
	args := m.Called(ctx, exec, tournamentID, limit)
	var totals []models.PlayerTotals
	if args.Get(0) != nil {
		totals = args.Get(0).([]models.PlayerTotals)
	}
	return totals, args.Error(1)
}

func TestLeaderboardLimit(t *testing.T) {
	tests := map[string]struct {
		limit     int
		wantLimit int
	}{
		"default":   {limit: 0, wantLimit: DefaultLeaderboardLimit},
		"negative":  {limit: -5, wantLimit: DefaultLeaderboardLimit},
		"explicit":  {limit: 10, wantLimit: 10},
		"clamped":   {limit: 5000, wantLimit: MaxLeaderboardLimit},
		"max value": {limit: MaxLeaderboardLimit, wantLimit: MaxLeaderboardLimit},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			stats := &mockPlayerStats{}
			stats.On("Leaderboard", mock.Anything, nil, testutils.TournamentID, tc.wantLimit).Return([]models.PlayerTotals{}, nil).Once()

			clk := testutils.NewMockClock()
			store := testutils.Seeded(clk)
			repos := repositoriesOf(store)
			repos.PlayerStats = stats
			svc := NewMatchService(store, repos, clk, discardLogger())

			_, err := svc.Leaderboard(context.Background(), testutils.TournamentID, tc.limit)
			require.NoError(t, err)
			stats.AssertExpectations(t)
		})
	}

	t.Run("repository error", func(t *testing.T) {
		stats := &mockPlayerStats{}
		stats.On("Leaderboard", mock.Anything, nil, testutils.TournamentID, DefaultLeaderboardLimit).Return(nil, errors.New("timeout"))

		clk := testutils.NewMockClock()
		store := testutils.Seeded(clk)
		repos := repositoriesOf(store)
		repos.PlayerStats = stats

		_, err := NewMatchService(store, repos, clk, discardLogger()).Leaderboard(context.Background(), testutils.TournamentID, 0)
		assert.Error(t, err)
	})
}
