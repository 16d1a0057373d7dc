package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/obe-attainment-api/internal/attainment"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

// engineError maps engine and storage errors onto API errors. Unrecognised errors are
// wrapped as internal with fallback as the message.
func engineError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}

	var (
		markErr *attainment.InvalidMarkError
		gridErr *attainment.GridError
		unknown *attainment.UnknownOutcomeError
		dup     *attainment.DuplicateRecordError
	)
	switch {
	case errors.As(err, &gridErr):
		e := appErrors.WithCause(appErrors.ErrInvalidGrid, err, gridErr.Error())
		e.Details = gridErrorDetails(gridErr)
		return e
	case errors.As(err, &markErr):
		return appErrors.WithCause(appErrors.ErrInvalidMark, err, markErr.Error())
	case errors.As(err, &unknown):
		e := appErrors.WithCause(appErrors.ErrUnknownOutcome, err, unknown.Error())
		e.Details = map[string]string{"kind": string(unknown.Kind), "code": unknown.Code}
		return e
	case errors.As(err, &dup):
		return appErrors.WithCause(appErrors.ErrDuplicateRecord, err, dup.Error())
	case errors.Is(err, attainment.ErrNoMappings):
		return appErrors.WithCause(appErrors.ErrNoMappings, err, "")
	case errors.Is(err, attainment.ErrGridRequired),
		errors.Is(err, attainment.ErrUnexpectedGrid),
		errors.Is(err, attainment.ErrMarksRequired),
		errors.Is(err, attainment.ErrUnexpectedMarks):
		return appErrors.WithCause(appErrors.ErrValidation, err, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, fallback)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallback)
}

func gridErrorDetails(e *attainment.GridError) map[string]interface{} {
	details := map[string]interface{}{"kind": string(e.Kind)}
	switch e.Kind {
	case attainment.GridWrongSlotCount:
		details["count"] = e.Count
	case attainment.GridTooManyAttempted:
		details["group"] = e.Group
		details["count"] = e.Count
	case attainment.GridCompulsoryMissing, attainment.GridTagMismatch:
		details["slot"] = e.Slot
	case attainment.GridMarkOutOfRange:
		details["slot"] = e.Slot
		details["mark"] = fmt.Sprintf("%v", e.Mark)
	}
	return details
}

// failureReason is the short metric label for a per-record failure.
func failureReason(err error) string {
	var (
		markErr *attainment.InvalidMarkError
		gridErr *attainment.GridError
		unknown *attainment.UnknownOutcomeError
		dup     *attainment.DuplicateRecordError
		input   *attainment.AggregationInputError
	)
	switch {
	case errors.As(err, &gridErr):
		return "invalid_grid"
	case errors.As(err, &markErr):
		return "invalid_mark"
	case errors.As(err, &unknown):
		return "unknown_outcome"
	case errors.As(err, &dup):
		return "duplicate_record"
	case errors.As(err, &input):
		return "aggregation_input"
	case errors.Is(err, attainment.ErrNoMappings):
		return "no_mappings"
	case errors.Is(err, attainment.ErrGridRequired),
		errors.Is(err, attainment.ErrUnexpectedGrid),
		errors.Is(err, attainment.ErrMarksRequired),
		errors.Is(err, attainment.ErrUnexpectedMarks):
		return "invalid_submission"
	}
	return "other"
}
