package client

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/Dosada05/tundra-matches/services"
)

// ErrUnauthorized - токен отсутствует, просрочен или не принят сервером.
var ErrUnauthorized = errors.New("request is not authenticated")

// APIError - разобранный конверт ошибки сервера. errors.Is по нему
// работает с ошибками сервиса: ErrNotParticipant, ErrInvalidState и т.д.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
	Retryable  bool
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("tundra api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("tundra api: %d %s: %s", e.StatusCode, e.Code, strings.Join(parts, "; "))
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "NOT_PARTICIPANT":
		return services.ErrNotParticipant
	case "INVALID_STATE":
		return services.ErrInvalidState
	case "ALREADY_FINALIZED":
		return services.ErrAlreadyFinalized
	case "VALIDATION_ERROR":
		return services.ErrValidationFailed
	case "NOT_FOUND":
		return services.ErrNotFound
	case "UNAUTHORIZED":
		return ErrUnauthorized
	}
	return nil
}

// IsRetryable сообщает, имеет ли смысл повторить запрос без изменений.
// Ошибки протокола матча (403/409/422/404) окончательны, сбои сервера и
// сети - нет.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
