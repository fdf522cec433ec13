package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Таксономия ошибок протокола матча. Конкретные ошибки ниже оборачивают
// одну из них, поэтому errors.Is работает по категории.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Участник не имеет права действовать за этот матч или сторону
	ErrNotParticipant = errors.New("caller is not an organizer of this match side")

	// Операция недопустима в текущем статусе матча
	ErrInvalidState = errors.New("operation not allowed in the current match state")

	// Матч уже завершен
	ErrAlreadyFinalized = errors.New("match is already completed")

	// Общая ошибка валидации
	ErrValidationFailed = errors.New("validation failed")
)

var (
	ErrMatchNotFound    = fmt.Errorf("%w: match not found", ErrNotFound)
	ErrProposalNotFound = fmt.Errorf("%w: time proposal not found", ErrNotFound)
	ErrClanNotFound     = fmt.Errorf("%w: clan not found", ErrNotFound)

	ErrSelfApproval        = fmt.Errorf("%w: proposer cannot respond to own proposal", ErrNotParticipant)
	ErrIdentityMismatch    = fmt.Errorf("%w: body identity does not match authenticated wallet", ErrNotParticipant)
	ErrAmbiguousSubmitter  = fmt.Errorf("%w: submitter organizes both clans, side must be given", ErrValidationFailed)
	ErrProposalPending     = fmt.Errorf("%w: a time proposal is already pending, set replaceExisting to supersede it", ErrInvalidState)
	ErrProposalClosed      = fmt.Errorf("%w: time proposal is no longer pending", ErrInvalidState)
	ErrResultsFrozen       = fmt.Errorf("%w: results are in conflict and await admin resolution", ErrInvalidState)
	ErrMatchNotStarted     = fmt.Errorf("%w: match has not started yet", ErrInvalidState)
	ErrNoConflict          = fmt.Errorf("%w: match has no results conflict", ErrInvalidState)
	ErrSchedulingClosed    = fmt.Errorf("%w: match time can no longer be changed", ErrInvalidState)
	ErrActivationForbidden = fmt.Errorf("%w: only scheduling or ready matches can be activated", ErrInvalidState)
)

// ValidationError несет ошибки по полям. Рендерится как 422 с картой полей.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns nil for an empty ValidationError so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
