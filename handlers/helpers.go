package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/tundra-matches/middleware"
	"github.com/Dosada05/tundra-matches/models"
	"github.com/Dosada05/tundra-matches/services"
	"github.com/Dosada05/tundra-matches/utils"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

// Коды ошибок в конверте ответа. Клиент восстанавливает по ним ошибки сервиса.
const (
	CodeNotParticipant   = "NOT_PARTICIPANT"
	CodeInvalidState     = "INVALID_STATE"
	CodeAlreadyFinalized = "ALREADY_FINALIZED"
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInternal         = "INTERNAL"
)

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Паника, т.к. это ошибка программиста (передан не указатель)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, code string, message interface{}) {
	env := jsonResponse{
		"error":     message,
		"code":      code,
		"retryable": status >= http.StatusInternalServerError,
	}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, CodeInternal, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, CodeValidation, err.Error())
}

func failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	errorResponse(w, r, http.StatusUnprocessableEntity, CodeValidation, errors)
}

func notFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusNotFound, CodeNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, code, message string) {
	errorResponse(w, r, http.StatusConflict, code, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, CodeUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, CodeNotParticipant, message)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *services.ValidationError

	switch {
	case errors.As(err, &validationErr):
		failedValidationResponse(w, r, validationErr.Fields)
	case errors.Is(err, services.ErrValidationFailed):
		errorResponse(w, r, http.StatusUnprocessableEntity, CodeValidation, err.Error())

	case errors.Is(err, services.ErrNotFound):
		notFoundResponse(w, r, err.Error())

	case errors.Is(err, services.ErrNotParticipant):
		forbiddenResponse(w, r, err.Error())

	case errors.Is(err, services.ErrAlreadyFinalized):
		conflictResponse(w, r, CodeAlreadyFinalized, err.Error())
	case errors.Is(err, services.ErrInvalidState):
		conflictResponse(w, r, CodeInvalidState, err.Error())

	// Непредвиденные ошибки / ошибки по умолчанию
	default:
		serverErrorResponse(w, r, err)
	}
}

func getIDFromURL(r *http.Request, paramName string) (int64, error) {
	idStr := chi.URLParam(r, paramName)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s in URL path", paramName)
	}
	return parseID(paramName, idStr)
}

func getIDFromQuery(r *http.Request, paramName string) (int64, error) {
	idStr := r.URL.Query().Get(paramName)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s query parameter", paramName)
	}
	return parseID(paramName, idStr)
}

func parseID(paramName, idStr string) (int64, error) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %q", paramName, idStr)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid %s value: %d", paramName, id)
	}
	return id, nil
}

// actorFromRequest берет кошелек и роль из токена. Если в теле указан
// кошелек (proposedBy, submittedBy...), он обязан совпасть с токеном.
func actorFromRequest(ctx context.Context, claimedWallet string) (services.Actor, error) {
	wallet, err := middleware.GetWalletFromContext(ctx)
	if err != nil {
		return services.Actor{}, err
	}
	role, err := middleware.GetUserRoleFromContext(ctx)
	if err != nil {
		return services.Actor{}, err
	}

	if claimedWallet != "" {
		claimed, err := utils.NormalizeAddress(claimedWallet)
		if err != nil || claimed != wallet {
			return services.Actor{}, services.ErrIdentityMismatch
		}
	}
	return services.Actor{Wallet: wallet, Admin: role == models.RoleAdmin}, nil
}

// resolveActor пишет ответ сам, если вызывающего определить нельзя.
func resolveActor(w http.ResponseWriter, r *http.Request, claimedWallet string) (services.Actor, bool) {
	actor, err := actorFromRequest(r.Context(), claimedWallet)
	switch {
	case err == nil:
		return actor, true
	case errors.Is(err, services.ErrIdentityMismatch):
		forbiddenResponse(w, r, err.Error())
	default:
		unauthorizedResponse(w, r, err.Error())
	}
	return services.Actor{}, false
}
