package application

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/example/studio-scheduler/internal/calendar"
)

// Messages produced by draft validation. The transport layer localizes them.
const (
	msgRequired        = "is required"
	msgRefID           = "must be a valid reference id"
	msgTimeFormat      = "must use 24-hour HH:MM format"
	msgSessionType     = "must be one of group, individual, special"
	msgWeekday         = "contains an unknown weekday"
	msgDateFormat      = "must be a date in YYYY-MM-DD format"
	msgTooLong         = "is too long"
	msgOutOfRange      = "is out of range"
	msgInvalid         = "is invalid"
	msgEndBeforeStart  = "end time must be after start time"
	msgNoOccurrences   = "no dates match the selected weekdays"
	msgTooManyDrafts   = "recurrence produces too many sessions"
	msgUnknownReason   = "unknown absence reason"
	msgUnknownAction   = "unknown batch action"
	msgNothingToChange = "present or reason must be provided"
	msgNotOnSession    = "participant is not on this session"
	msgRangeReversed   = "must not be before from"
)

// newDraftValidator registers the custom tags used by SessionDraft and names
// fields after their `field` struct tag.
func newDraftValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("field"); name != "" {
			return name
		}
		return fld.Name
	})
	mustRegister(validate, "refid", func(fl validator.FieldLevel) bool {
		_, err := uuid.Parse(fl.Field().String())
		return err == nil
	})
	mustRegister(validate, "hhmm", func(fl validator.FieldLevel) bool {
		return calendar.IsTimeOfDay(fl.Field().String())
	})
	mustRegister(validate, "sessiontype", func(fl validator.FieldLevel) bool {
		return SessionType(fl.Field().String()).Valid()
	})
	mustRegister(validate, "weekday", func(fl validator.FieldLevel) bool {
		_, err := calendar.ParseWeekday(fl.Field().String())
		return err == nil
	})
	return validate
}

func mustRegister(validate *validator.Validate, tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// validationErrorFrom folds validator output into a ValidationError keyed by
// field name. Slice element errors are reported on the slice field.
func validationErrorFrom(err error) *ValidationError {
	vErr := &ValidationError{}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		vErr.add("draft", msgInvalid)
		return vErr
	}
	for _, fieldErr := range fieldErrors {
		field := fieldErr.Field()
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i]
		}
		vErr.add(field, messageForTag(fieldErr.Tag()))
	}
	return vErr
}

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return msgRequired
	case "refid":
		return msgRefID
	case "hhmm":
		return msgTimeFormat
	case "sessiontype":
		return msgSessionType
	case "weekday":
		return msgWeekday
	case "datetime":
		return msgDateFormat
	case "max":
		return msgTooLong
	case "min":
		return msgOutOfRange
	}
	return msgInvalid
}

// parsedDraft is a SessionDraft that passed validation.
type parsedDraft struct {
	name           string
	roomID         string
	trainerID      string
	sessionType    SessionType
	groupID        string
	participantIDs []string
	date           calendar.Date
	start          calendar.TimeOfDay
	end            calendar.TimeOfDay
	weekdays       []calendar.Weekday
	horizonMonths  int
	conducted      *bool
}

// parseDraft validates draft and converts it. Every failure is reported
// through one ValidationError.
func parseDraft(validate *validator.Validate, draft SessionDraft) (parsedDraft, *ValidationError) {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.RoomID = strings.TrimSpace(draft.RoomID)
	draft.TrainerID = strings.TrimSpace(draft.TrainerID)
	draft.GroupID = strings.TrimSpace(draft.GroupID)
	draft.Type = strings.TrimSpace(draft.Type)
	draft.ParticipantIDs = uniqueStrings(draft.ParticipantIDs)

	vErr := &ValidationError{}
	if err := validate.Struct(draft); err != nil {
		vErr.merge(validationErrorFrom(err))
	}

	parsed := parsedDraft{
		name:           draft.Name,
		roomID:         draft.RoomID,
		trainerID:      draft.TrainerID,
		sessionType:    SessionType(draft.Type),
		groupID:        draft.GroupID,
		participantIDs: draft.ParticipantIDs,
		horizonMonths:  draft.HorizonMonths,
		conducted:      draft.Conducted,
	}

	if date, err := calendar.ParseDate(draft.Date); err == nil {
		parsed.date = date
	}
	start, startErr := calendar.ParseTimeOfDay(draft.StartTime)
	end, endErr := calendar.ParseTimeOfDay(draft.EndTime)
	if startErr == nil && endErr == nil {
		parsed.start, parsed.end = start, end
		if end <= start {
			vErr.add("end_time", msgEndBeforeStart)
		}
	}

	weekdays := make([]calendar.Weekday, 0, len(draft.RecurrenceWeekdays))
	for _, label := range draft.RecurrenceWeekdays {
		if day, err := calendar.ParseWeekday(label); err == nil {
			weekdays = append(weekdays, day)
		}
	}
	parsed.weekdays = calendar.SortWeekdays(weekdays)

	if vErr.HasErrors() {
		return parsedDraft{}, vErr
	}
	return parsed, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
