package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/repositories"
	"github.com/google/uuid"
)

type ProposeTimeInput struct {
	MatchID         int64
	ProposedTime    time.Time
	ReplaceExisting bool
}

type RespondToTimeInput struct {
	ProposalID uuid.UUID
	Decision   models.ProposalDecision
}

// ProposeTime создает предложение времени. У матча может быть только одно
// pending-предложение: с ReplaceExisting старое помечается superseded,
// без него вызов отклоняется.
func (s *matchService) ProposeTime(ctx context.Context, actor Actor, input ProposeTimeInput) (*models.TimeProposal, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	v := newValidationError()
	if input.ProposedTime.IsZero() {
		v.Add("proposedTime", "is required")
	} else if !input.ProposedTime.After(now) {
		v.Add("proposedTime", "must be in the future")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var (
		proposal *models.TimeProposal
		match    *models.Match
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		mc, err := s.lockMatch(ctx, exec, input.MatchID)
		if err != nil {
			return err
		}
		match = mc.match

		switch match.EffectiveStatus(now) {
		case models.StatusScheduling, models.StatusReady:
		default:
			return fmt.Errorf("%w (status %s)", ErrSchedulingClosed, match.EffectiveStatus(now))
		}

		sides := mc.sidesOf(actor.Wallet)
		if len(sides) == 0 {
			return ErrNotParticipant
		}

		pending, err := s.repos.Proposals.GetPending(ctx, exec, match.ID)
		switch {
		case err == nil:
			if !input.ReplaceExisting {
				return ErrProposalPending
			}
			if err := s.repos.Proposals.Close(ctx, exec, pending.ID, models.ProposalSuperseded, nil, now); err != nil {
				return handleRepositoryError(err)
			}
		case errors.Is(err, repositories.ErrProposalNotFound):
		default:
			return err
		}

		proposal = &models.TimeProposal{
			ID:           s.newID(),
			MatchID:      match.ID,
			ProposedTime: input.ProposedTime.UTC(),
			ProposedBy:   actor.Wallet,
			ProposerSide: sides[0],
			Status:       models.ProposalPending,
		}
		if err := s.repos.Proposals.Create(ctx, exec, proposal); err != nil {
			return handleRepositoryError(err)
		}

		// Перенос уже согласованного матча возвращает его в scheduling,
		// прежнее время остается до ответа соперника.
		if match.Status != models.StatusScheduling {
			if err := transition(match, models.StatusScheduling); err != nil {
				return err
			}
			return s.saveMatch(ctx, exec, match)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("time proposed",
		slog.Int64("match_id", input.MatchID),
		slog.String("proposal_id", proposal.ID.String()),
		slog.String("proposed_by", actor.Wallet),
	)
	s.publish(ctx, match)
	return proposal, nil
}

// RespondToTime принимает или отклоняет предложение. Отвечать может только
// организатор противоположной стороны.
func (s *matchService) RespondToTime(ctx context.Context, actor Actor, input RespondToTimeInput) (*models.Match, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	if !input.Decision.IsValid() {
		v := newValidationError()
		v.Add("action", "must be accepted or rejected")
		return nil, v
	}

	var match *models.Match
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		proposal, err := s.repos.Proposals.GetByID(ctx, exec, input.ProposalID)
		if err != nil {
			return handleRepositoryError(err)
		}

		mc, err := s.lockMatch(ctx, exec, proposal.MatchID)
		if err != nil {
			return err
		}
		match = mc.match

		// Перечитываем под блокировкой матча: предложение могли закрыть параллельно.
		if proposal, err = s.repos.Proposals.GetByID(ctx, exec, input.ProposalID); err != nil {
			return handleRepositoryError(err)
		}
		if proposal.Status != models.ProposalPending {
			return fmt.Errorf("%w (status %s)", ErrProposalClosed, proposal.Status)
		}
		if match.Status != models.StatusScheduling {
			return fmt.Errorf("%w (status %s)", ErrSchedulingClosed, match.Status)
		}

		if proposal.ProposedBy == actor.Wallet {
			return ErrSelfApproval
		}
		if !mc.clan(proposal.ProposerSide.Opponent()).IsOrganizer(actor.Wallet) {
			return ErrNotParticipant
		}

		now := s.now()
		respondedBy := actor.Wallet
		switch input.Decision {
		case models.DecisionAccept:
			if err := s.repos.Proposals.Close(ctx, exec, proposal.ID, models.ProposalAccepted, &respondedBy, now); err != nil {
				return handleRepositoryError(err)
			}
			agreed := proposal.ProposedTime
			match.ScheduledAt = &agreed
			if err := transition(match, models.StatusReady); err != nil {
				return err
			}
		case models.DecisionReject:
			if err := s.repos.Proposals.Close(ctx, exec, proposal.ID, models.ProposalRejected, &respondedBy, now); err != nil {
				return handleRepositoryError(err)
			}
			if match.ScheduledAt == nil {
				return nil
			}
			// Отклоненный перенос: в силе остается прежнее время.
			if err := transition(match, models.StatusReady); err != nil {
				return err
			}
		}
		return s.saveMatch(ctx, exec, match)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("time proposal answered",
		slog.Int64("match_id", match.ID),
		slog.String("proposal_id", input.ProposalID.String()),
		slog.String("decision", string(input.Decision)),
	)
	return s.publish(ctx, match), nil
}

// ListProposals возвращает незакрытые предложения матча.
func (s *matchService) ListProposals(ctx context.Context, matchID int64) ([]*models.TimeProposal, error) {
	if _, err := s.repos.Matches.GetByID(ctx, nil, matchID); err != nil {
		return nil, handleRepositoryError(err)
	}
	pending := models.ProposalPending
	proposals, err := s.repos.Proposals.ListByMatch(ctx, nil, matchID, &pending)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals of match %d: %w", matchID, err)
	}
	return proposals, nil
}
