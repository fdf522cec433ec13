package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/repositories"
	"github.com/Dosada05/tundra-matches/utils"
)

// isValidStatusTransition - сохраняемые переходы. ready -> active здесь нет:
// он только вычисляется при чтении, а явная активация идет через MarkActive.
func isValidStatusTransition(current, next models.MatchStatus) bool {
	allowedTransitions := map[models.MatchStatus][]models.MatchStatus{
		models.StatusScheduling:      {models.StatusScheduling, models.StatusReady, models.StatusActive, models.StatusCompleted},
		models.StatusReady:           {models.StatusScheduling, models.StatusReady, models.StatusActive, models.StatusResultsPending, models.StatusCompleted},
		models.StatusActive:          {models.StatusResultsPending, models.StatusCompleted},
		models.StatusResultsPending:  {models.StatusResultsPending, models.StatusResultsConflict, models.StatusCompleted},
		models.StatusResultsConflict: {models.StatusCompleted},
		models.StatusCompleted:       {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// transition меняет статус матча, проверяя таблицу переходов.
func transition(match *models.Match, next models.MatchStatus) error {
	if !isValidStatusTransition(match.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, match.Status, next)
	}
	match.Status = next
	return nil
}

func requireAdmin(actor Actor) error {
	if !actor.Admin {
		return fmt.Errorf("%w: admin role required", ErrNotParticipant)
	}
	return nil
}

func normalizeActor(actor Actor) (Actor, error) {
	wallet, err := utils.NormalizeAddress(actor.Wallet)
	if err != nil {
		return actor, fmt.Errorf("%w: caller wallet is invalid", ErrNotParticipant)
	}
	actor.Wallet = wallet
	return actor, nil
}

// handleRepositoryError - общий хелпер для ошибок репозитория
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrProposalNotFound):
		return ErrProposalNotFound
	case errors.Is(err, repositories.ErrClanNotFound):
		return ErrClanNotFound
	case errors.Is(err, repositories.ErrProposalPendingConflict):
		return ErrProposalPending
	case errors.Is(err, repositories.ErrMatchClanInvalid),
		errors.Is(err, repositories.ErrProposalMatchInvalid),
		errors.Is(err, repositories.ErrSubmissionMatchInvalid):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return err
}
