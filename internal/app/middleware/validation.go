package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"staycal/internal/app/commands"
	"staycal/internal/app/queries"
	"staycal/internal/domain/shared/daterange"
)

var ErrValidation = errors.New("validation failed")

// MaxSpanDays caps how many days apart the ends of one request may be.
const MaxSpanDays = 730

// DateSpanned is implemented by messages that cover a range of days.
// Reversed ranges are left to the engine.
type DateSpanned interface {
	DateSpan() (start, end time.Time)
}

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// StructValidator validates messages through their `validate` struct tags.
type StructValidator struct {
	v *validator.Validate
}

func NewStructValidator() *StructValidator {
	return &StructValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (s *StructValidator) Validate(ctx context.Context, message any) error {
	err := s.v.StructCtx(ctx, message)
	if err == nil {
		return checkSpan(message)
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, ", "))
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		// non-struct messages carry no tags
		return checkSpan(message)
	}
	return err
}

func checkSpan(message any) error {
	spanned, ok := message.(DateSpanned)
	if !ok {
		return nil
	}
	start, end := spanned.DateSpan()
	start, end = daterange.Day(start), daterange.Day(end)
	if end.Before(start) {
		return nil
	}
	if days := int(end.Sub(start).Hours() / 24); days > MaxSpanDays {
		return fmt.Errorf("%w: range spans %d days, at most %d allowed", ErrValidation, days, MaxSpanDays)
	}
	return nil
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := v.Validate(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := v.Validate(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
