package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/studio-scheduler/internal/application"
)

var (
	errBadRequestBody   = errors.New("Некорректный формат запроса.")
	errInvalidSessionID = errors.New("Некорректный идентификатор занятия.")
	errInvalidEditorID  = errors.New("Некорректный идентификатор редактора посещаемости.")
	errMissingToken     = errors.New("Укажите токен доступа.")
	errInvalidToken     = errors.New("Недействительный токен доступа.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		vErr       *application.ValidationError
		partialErr *application.PartialBatchFailure
		persistErr *application.PersistenceError
	)
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:    localizeValidationErrors(vErr),
		})
	case errors.Is(err, application.ErrEditorNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "EDITOR_NOT_FOUND",
			Message:   "Редактор посещаемости не найден или закрыт по таймауту. Откройте его заново.",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "NOT_FOUND",
			Message:   localizedStatusMessage(http.StatusNotFound),
		})
	case errors.As(err, &partialErr):
		r.loggerFor(ctx).ErrorContext(ctx, "batch stopped part way", "error", err, "created_count", len(partialErr.Created))
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: "PARTIAL_BATCH",
			Message: fmt.Sprintf("Создано занятий: %d из %d. Не удалось сохранить занятие на %s, остальные не созданы.",
				len(partialErr.Created), partialErr.Total, partialErr.FailedDate),
			CreatedIDs: partialErr.CreatedIDs(),
		})
	case errors.As(err, &persistErr):
		r.loggerFor(ctx).ErrorContext(ctx, "persistence failure", "error", err, "op", persistErr.Op)
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: "PERSISTENCE",
			Message:   "Не удалось обратиться к хранилищу. Повторите попытку позже.",
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Некорректный запрос."
	case http.StatusUnauthorized:
		return "Требуется авторизация."
	case http.StatusNotFound:
		return "Запрошенный ресурс не найден."
	case http.StatusUnprocessableEntity:
		return "Проверьте введённые данные."
	case http.StatusBadGateway:
		return "Хранилище временно недоступно."
	case http.StatusServiceUnavailable:
		return "Сервис временно недоступен."
	default:
		return "Внутренняя ошибка сервера."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "is required":
		return "Обязательное поле."
	case "must be a valid reference id":
		return "Некорректный идентификатор."
	case "must use 24-hour HH:MM format":
		return "Укажите время в формате ЧЧ:ММ (24 часа)."
	case "must be one of group, individual, special":
		return "Тип занятия: group, individual или special."
	case "contains an unknown weekday":
		return "Указан неизвестный день недели."
	case "must be a date in YYYY-MM-DD format":
		return "Укажите дату в формате ГГГГ-ММ-ДД."
	case "is too long":
		return "Слишком длинное значение."
	case "is out of range":
		return "Значение вне допустимого диапазона."
	case "is invalid":
		return "Некорректное значение."
	case "end time must be after start time":
		return "Время окончания должно быть позже времени начала."
	case "no dates match the selected weekdays":
		return "Ни одна дата не подходит под выбранные дни недели."
	case "recurrence produces too many sessions":
		return "Повторение создаёт слишком много занятий. Сократите период."
	case "unknown absence reason":
		return "Неизвестная причина отсутствия."
	case "unknown batch action":
		return "Неизвестное групповое действие."
	case "present or reason must be provided":
		return "Укажите отметку присутствия или причину отсутствия."
	case "participant is not on this session":
		return "Участник не записан на это занятие."
	case "must not be before from":
		return "Конец периода не может быть раньше начала."
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode  string            `json:"error_code,omitempty"`
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors,omitempty"`
	CreatedIDs []string          `json:"created_ids,omitempty"`
}
