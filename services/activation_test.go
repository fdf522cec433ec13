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

func TestActivationSweep(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.schedule(t, testutils.MatchID, testutils.Epoch.Add(30*time.Minute))

	announced := &testutils.RecordingNotifier{}
	sweeper := NewActivationSweeper(h.store.Matches(), h.clock, announced, discardLogger())

	h.clock.Add(10 * time.Minute)
	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	h.clock.Add(25 * time.Minute)
	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	activated := announced.Activated()
	require.Len(t, activated, 1)
	assert.Equal(t, testutils.MatchID, activated[0].ID)
	assert.Equal(t, models.StatusActive, activated[0].Status)

	// Уже объявленный матч повторно не объявляется.
	h.clock.Add(time.Minute)
	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, announced.Activated(), 1)
}

type stubMatches struct {
	repositories.MatchRepository
	mock.Mock
}

func (m *stubMatches) ListScheduledBetween(ctx context.Context, exec repositories.SQLExecutor, from, to time.Time) ([]*models.Match, error) {
	args := m.Called(ctx, exec, from, to)
	var matches []*models.Match
	if args.Get(0) != nil {
		matches = args.Get(0).([]*models.Match)
	}
	return matches, args.Error(1)
}

func TestActivationSweepRetriesWindowAfterError(t *testing.T) {
	ctx := context.Background()
	clk := testutils.NewMockClock()
	matches := &stubMatches{}
	announced := &testutils.RecordingNotifier{}
	sweeper := NewActivationSweeper(matches, clk, announced, discardLogger())

	clk.Add(time.Minute)
	matches.On("ListScheduledBetween", mock.Anything, nil, testutils.Epoch, testutils.Epoch.Add(time.Minute)).
		Return(nil, errors.New("connection refused")).Once()
	_, err := sweeper.Sweep(ctx)
	assert.Error(t, err)

	// Окно не сдвигается: следующий проход начинается с того же момента.
	clk.Add(time.Minute)
	due := testutils.NewMatch(5)
	at := testutils.Epoch.Add(30 * time.Second)
	due.Status, due.ScheduledAt = models.StatusReady, &at
	matches.On("ListScheduledBetween", mock.Anything, nil, testutils.Epoch, testutils.Epoch.Add(2*time.Minute)).
		Return([]*models.Match{&due}, nil).Once()

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	matches.AssertExpectations(t)
}

func TestActivationSweeperStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := testutils.NewMockClock()
	store := testutils.Seeded(clk)
	h := newHarnessWithStore(t, clk, store)
	h.schedule(t, testutils.MatchID, testutils.Epoch.Add(time.Minute))

	announced := &testutils.RecordingNotifier{}
	sweeper := NewActivationSweeper(store.Matches(), clk, announced, discardLogger())
	clk.Add(2 * time.Minute)

	sched, err := sweeper.Start(ctx, 20*time.Millisecond)
	require.NoError(t, err)
	defer func() { require.NoError(t, sched.Shutdown()) }()

	require.Eventually(t, func() bool { return len(announced.Activated()) == 1 }, 2*time.Second, 10*time.Millisecond)
}
