package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/repositories"
)

type ResolveConflictInput struct {
	MatchID            int64
	Score              models.Score
	PlayerPerformances []PlayerPerformanceInput
	Note               string
}

// ResolveConflict - ручное решение администратора по спорному матчу.
// Обе исходные заявки остаются в ConflictData рядом с решением.
func (s *matchService) ResolveConflict(ctx context.Context, actor Actor, input ResolveConflictInput) (*models.Match, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	v := newValidationError()
	validateScoreInput(v, &input.Score, nil)
	validatePerformanceInputs(v, input.PlayerPerformances)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var match *models.Match
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		mc, err := s.lockMatch(ctx, exec, input.MatchID)
		if err != nil {
			return err
		}
		match = mc.match

		switch {
		case match.Status == models.StatusCompleted:
			return ErrAlreadyFinalized
		case match.Status != models.StatusResultsConflict || match.ConflictData == nil:
			return fmt.Errorf("%w (status %s)", ErrNoConflict, match.EffectiveStatus(s.now()))
		}

		perfs, err := buildPerformances(match, input.PlayerPerformances)
		if err != nil {
			return err
		}

		now := s.now()
		if err := s.completeMatch(ctx, exec, match, input.Score, perfs, now); err != nil {
			return err
		}
		finalScore := input.Score
		match.ConflictData.Resolution = &models.Resolution{
			ResolvedBy:         actor.Wallet,
			Score:              &finalScore,
			WinnerID:           *match.WinnerID,
			PlayerPerformances: match.PlayerPerformances,
			Note:               input.Note,
			ResolvedAt:         now,
		}
		return s.saveMatch(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("results conflict resolved",
		slog.Int64("match_id", match.ID),
		slog.String("resolved_by", actor.Wallet),
		slog.Int64("winner_id", *match.WinnerID),
	)
	s.archive(ctx, match)
	return s.publish(ctx, match), nil
}

// archive - копия решения во внешнем хранилище. Сбой не влияет на результат.
func (s *matchService) archive(ctx context.Context, match *models.Match) {
	if s.archiver == nil {
		return
	}
	key, err := s.archiver.ArchiveResolution(ctx, match)
	if err != nil {
		s.logger.Warn("failed to archive conflict resolution", slog.Int64("match_id", match.ID), slog.Any("error", err))
		return
	}
	s.logger.Info("conflict resolution archived", slog.Int64("match_id", match.ID), slog.String("key", key))
}

// SetWinner - прямой ввод победителя администратором для любого
// незавершенного матча. Для спорного матча решение записывается в
// ConflictData так же, как при ResolveConflict.
func (s *matchService) SetWinner(ctx context.Context, actor Actor, matchID, winnerClanID int64) (*models.Match, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var match *models.Match
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		mc, err := s.lockMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}
		match = mc.match

		if match.Status == models.StatusCompleted {
			return ErrAlreadyFinalized
		}
		if _, ok := match.SideOfClan(winnerClanID); !ok {
			v := newValidationError()
			v.Add("winnerId", "must be one of the match clans")
			return v
		}

		now := s.now()
		if err := s.supersedePending(ctx, exec, match.ID, now); err != nil {
			return err
		}
		if err := transition(match, models.StatusCompleted); err != nil {
			return err
		}
		completedAt := now
		match.WinnerID = &winnerClanID
		match.CompletedAt = &completedAt
		if match.ConflictData != nil {
			match.ConflictData.Resolution = &models.Resolution{
				ResolvedBy: actor.Wallet,
				WinnerID:   winnerClanID,
				Note:       "winner set directly",
				ResolvedAt: now,
			}
		}
		return s.saveMatch(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match winner set by admin",
		slog.Int64("match_id", matchID),
		slog.String("admin", actor.Wallet),
		slog.Int64("winner_id", winnerClanID),
	)
	if match.ConflictData != nil {
		s.archive(ctx, match)
	}
	return s.publish(ctx, match), nil
}

// MarkActive явно начинает матч, не дожидаясь согласованного времени.
func (s *matchService) MarkActive(ctx context.Context, actor Actor, matchID int64) (*models.Match, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var match *models.Match
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		mc, err := s.lockMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}
		match = mc.match

		switch match.Status {
		case models.StatusScheduling, models.StatusReady:
		case models.StatusCompleted:
			return ErrAlreadyFinalized
		default:
			return fmt.Errorf("%w (status %s)", ErrActivationForbidden, match.Status)
		}

		if err := s.supersedePending(ctx, exec, match.ID, s.now()); err != nil {
			return err
		}
		if err := transition(match, models.StatusActive); err != nil {
			return err
		}
		return s.saveMatch(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match marked active", slog.Int64("match_id", matchID), slog.String("admin", actor.Wallet))
	return s.publish(ctx, match), nil
}

// supersedePending закрывает висящее предложение времени, если оно есть.
func (s *matchService) supersedePending(ctx context.Context, exec repositories.SQLExecutor, matchID int64, now time.Time) error {
	pending, err := s.repos.Proposals.GetPending(ctx, exec, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrProposalNotFound) {
			return nil
		}
		return err
	}
	return handleRepositoryError(s.repos.Proposals.Close(ctx, exec, pending.ID, models.ProposalSuperseded, nil, now))
}
