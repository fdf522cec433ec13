package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) ArchiveResolution(ctx context.Context, match *models.Match) (string, error) {
	args := m.Called(ctx, match)
	return args.String(0), args.Error(1)
}

func TestResolveConflict(t *testing.T) {
	ctx := context.Background()

	t.Run("admin decision completes the match", func(t *testing.T) {
		archiver := &mockArchiver{}
		archiver.On("ArchiveResolution", mock.Anything, mock.MatchedBy(func(m *models.Match) bool {
			return m.ConflictData != nil && m.ConflictData.Resolution != nil
		})).Return("resolutions/7/match_100/x.json", nil).Once()

		h := newHarness(t, WithArchiver(archiver))
		h.conflict(t)

		match, err := h.svc.ResolveConflict(ctx, admin(), ResolveConflictInput{
			MatchID: testutils.MatchID,
			Score:   models.Score{Clan1: 14, Clan2: 16},
			PlayerPerformances: []PlayerPerformanceInput{
				perf(testutils.LeaderB, testutils.ClanBID, 30, 10, 2),
				perf(testutils.LeaderA, testutils.ClanAID, 18, 12, 0),
			},
			Note: "checked the replay",
		})
		require.NoError(t, err)
		archiver.AssertExpectations(t)

		assert.Equal(t, models.StatusCompleted, match.Status)
		assert.Equal(t, models.Score{Clan1: 14, Clan2: 16}, *match.Score)
		assert.Equal(t, testutils.ClanBID, *match.WinnerID)
		require.Len(t, match.PlayerPerformances, 2)
		assert.Equal(t, testutils.LeaderB, match.PlayerPerformances[0].PlayerAddress)
		assert.True(t, match.PlayerPerformances[0].MVP)
		assert.False(t, match.PlayerPerformances[1].MVP)

		// Исходные заявки не теряются.
		require.NotNil(t, match.ConflictData)
		assert.Equal(t, models.Score{Clan1: 16, Clan2: 10}, match.ConflictData.Clan1Submission.Score)
		assert.Equal(t, models.Score{Clan1: 12, Clan2: 16}, match.ConflictData.Clan2Submission.Score)
		require.NotNil(t, match.ConflictData.Resolution)
		assert.Equal(t, testutils.Admin, match.ConflictData.Resolution.ResolvedBy)
		assert.Equal(t, testutils.ClanBID, match.ConflictData.Resolution.WinnerID)
		assert.Equal(t, "checked the replay", match.ConflictData.Resolution.Note)

		assert.Len(t, h.store.PlayerStats(testutils.MatchID), 2)
	})

	t.Run("archive failure does not fail the resolution", func(t *testing.T) {
		archiver := &mockArchiver{}
		archiver.On("ArchiveResolution", mock.Anything, mock.Anything).Return("", errors.New("bucket unavailable")).Once()

		h := newHarness(t, WithArchiver(archiver))
		h.conflict(t)

		match, err := h.svc.ResolveConflict(ctx, admin(), ResolveConflictInput{MatchID: testutils.MatchID, Score: models.Score{Clan1: 16, Clan2: 10}})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, match.Status)
		archiver.AssertExpectations(t)
	})

	tests := map[string]struct {
		setup   func(t *testing.T, h *harness)
		actor   Actor
		input   ResolveConflictInput
		wantErr error
	}{
		"not an admin": {
			setup:   func(t *testing.T, h *harness) { h.conflict(t) },
			actor:   player(testutils.LeaderA),
			input:   ResolveConflictInput{MatchID: testutils.MatchID, Score: models.Score{Clan1: 16, Clan2: 10}},
			wantErr: ErrNotParticipant,
		},
		"no conflict": {
			setup: func(t *testing.T, h *harness) {
				h.start(t, testutils.MatchID)
				h.submit(t, testutils.LeaderA, models.Score{Clan1: 16, Clan2: 10})
			},
			actor:   admin(),
			input:   ResolveConflictInput{MatchID: testutils.MatchID, Score: models.Score{Clan1: 16, Clan2: 10}},
			wantErr: ErrNoConflict,
		},
		"already resolved": {
			setup: func(t *testing.T, h *harness) {
				h.conflict(t)
				_, err := h.svc.ResolveConflict(context.Background(), admin(), ResolveConflictInput{MatchID: testutils.MatchID, Score: models.Score{Clan1: 16, Clan2: 10}})
				require.NoError(t, err)
			},
			actor:   admin(),
			input:   ResolveConflictInput{MatchID: testutils.MatchID, Score: models.Score{Clan1: 1, Clan2: 16}},
			wantErr: ErrAlreadyFinalized,
		},
		"tie": {
			setup:   func(t *testing.T, h *harness) { h.conflict(t) },
			actor:   admin(),
			input:   ResolveConflictInput{MatchID: testutils.MatchID, Score: models.Score{Clan1: 16, Clan2: 16}},
			wantErr: ErrValidationFailed,
		},
		"player outside match": {
			setup: func(t *testing.T, h *harness) { h.conflict(t) },
			actor: admin(),
			input: ResolveConflictInput{MatchID: testutils.MatchID, Score: models.Score{Clan1: 16, Clan2: 10}, PlayerPerformances: []PlayerPerformanceInput{
				perf(testutils.Outsider, 99, 1, 1, 1),
			}},
			wantErr: ErrValidationFailed,
		},
		"unknown match": {
			setup:   func(t *testing.T, h *harness) {},
			actor:   admin(),
			input:   ResolveConflictInput{MatchID: 999, Score: models.Score{Clan1: 16, Clan2: 10}},
			wantErr: ErrMatchNotFound,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			tc.setup(t, h)
			before, _ := h.store.StoredMatch(testutils.MatchID)

			_, err := h.svc.ResolveConflict(ctx, tc.actor, tc.input)
			assert.ErrorIs(t, err, tc.wantErr)

			after, _ := h.store.StoredMatch(testutils.MatchID)
			assert.Equal(t, before, after)
		})
	}
}

func TestSetWinner(t *testing.T) {
	ctx := context.Background()

	t.Run("supersedes pending proposal", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.ProposeTime(ctx, player(testutils.LeaderA), ProposeTimeInput{MatchID: testutils.MatchID, ProposedTime: testutils.Epoch.Add(time.Hour)})
		require.NoError(t, err)

		match, err := h.svc.SetWinner(ctx, admin(), testutils.MatchID, testutils.ClanBID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, match.Status)
		assert.Equal(t, testutils.ClanBID, *match.WinnerID)
		require.NotNil(t, match.CompletedAt)
		assert.Nil(t, match.Score)

		proposals := h.store.AllProposals(testutils.MatchID)
		require.Len(t, proposals, 1)
		assert.Equal(t, models.ProposalSuperseded, proposals[0].Status)
	})

	t.Run("from results conflict", func(t *testing.T) {
		archiver := &mockArchiver{}
		archiver.On("ArchiveResolution", mock.Anything, mock.Anything).Return("resolutions/7/match_100/x.json", nil).Once()
		h := newHarness(t, WithArchiver(archiver))
		h.conflict(t)

		match, err := h.svc.SetWinner(ctx, admin(), testutils.MatchID, testutils.ClanAID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, match.Status)
		require.NotNil(t, match.ConflictData)
		assert.Equal(t, models.Score{Clan1: 16, Clan2: 10}, match.ConflictData.Clan1Submission.Score)

		resolution := match.ConflictData.Resolution
		require.NotNil(t, resolution)
		assert.Equal(t, testutils.Admin, resolution.ResolvedBy)
		assert.Equal(t, testutils.ClanAID, resolution.WinnerID)
		assert.Nil(t, resolution.Score)
		assert.True(t, h.clock.Now().Equal(resolution.ResolvedAt))
		archiver.AssertExpectations(t)
	})

	t.Run("without conflict skips archive", func(t *testing.T) {
		archiver := &mockArchiver{}
		h := newHarness(t, WithArchiver(archiver))

		match, err := h.svc.SetWinner(ctx, admin(), testutils.MatchID, testutils.ClanAID)
		require.NoError(t, err)
		assert.Nil(t, match.ConflictData)
		archiver.AssertNotCalled(t, "ArchiveResolution", mock.Anything, mock.Anything)
	})

	tests := map[string]struct {
		actor   Actor
		winner  int64
		setup   func(t *testing.T, h *harness)
		wantErr error
	}{
		"not an admin": {
			actor:   player(testutils.LeaderA),
			winner:  testutils.ClanAID,
			wantErr: ErrNotParticipant,
		},
		"winner outside match": {
			actor:   admin(),
			winner:  42,
			wantErr: ErrValidationFailed,
		},
		"already completed": {
			actor:  admin(),
			winner: testutils.ClanAID,
			setup: func(t *testing.T, h *harness) {
				_, err := h.svc.SetWinner(context.Background(), admin(), testutils.MatchID, testutils.ClanBID)
				require.NoError(t, err)
			},
			wantErr: ErrAlreadyFinalized,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			if tc.setup != nil {
				tc.setup(t, h)
			}
			before := h.stored(t, testutils.MatchID)

			_, err := h.svc.SetWinner(ctx, tc.actor, testutils.MatchID, tc.winner)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, before, h.stored(t, testutils.MatchID))
		})
	}
}

func TestMarkActive(t *testing.T) {
	ctx := context.Background()

	tests := map[string]struct {
		actor   Actor
		setup   func(t *testing.T, h *harness)
		wantErr error
	}{
		"from scheduling": {
			actor: admin(),
			setup: func(t *testing.T, h *harness) {
				_, err := h.svc.ProposeTime(ctx, player(testutils.LeaderB), ProposeTimeInput{MatchID: testutils.MatchID, ProposedTime: testutils.Epoch.Add(time.Hour)})
				require.NoError(t, err)
			},
		},
		"from ready": {
			actor: admin(),
			setup: func(t *testing.T, h *harness) {
				h.schedule(t, testutils.MatchID, testutils.Epoch.Add(48*time.Hour))
			},
		},
		"not an admin": {
			actor:   player(testutils.LeaderA),
			wantErr: ErrNotParticipant,
		},
		"results pending": {
			actor: admin(),
			setup: func(t *testing.T, h *harness) {
				h.start(t, testutils.MatchID)
				h.submit(t, testutils.LeaderA, models.Score{Clan1: 1, Clan2: 0})
			},
			wantErr: ErrActivationForbidden,
		},
		"completed": {
			actor: admin(),
			setup: func(t *testing.T, h *harness) {
				_, err := h.svc.SetWinner(ctx, admin(), testutils.MatchID, testutils.ClanBID)
				require.NoError(t, err)
			},
			wantErr: ErrAlreadyFinalized,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			if tc.setup != nil {
				tc.setup(t, h)
			}

			match, err := h.svc.MarkActive(ctx, tc.actor, testutils.MatchID)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusActive, match.Status)
			assert.Equal(t, models.StatusActive, h.stored(t, testutils.MatchID).Status)

			pending, err := h.svc.ListProposals(ctx, testutils.MatchID)
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}
