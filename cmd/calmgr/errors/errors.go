package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	"github.com/labstack/echo/v4"
)

type ErrorMessage struct {
	Reason string `json:"reason" xml:"reason"`
	Advice string `json:"advice,omitempty" xml:"advice,omitempty"`
	Cause  error  `json:"-" xml:"-"`
}

func (e ErrorMessage) String() string {
	lines := []string{e.Reason}
	if e.Advice != "" {
		lines = append(lines, e.Advice)
	}
	if e.Cause != nil {
		lines = append(lines, fmt.Sprint(" caused by:", e.Cause.Error()))
	}
	return strings.Join(lines, "\n")
}

func (e ErrorMessage) Error() string {
	return e.String()
}

type ErrorMessageOption func(in *ErrorMessage) *ErrorMessage

func WithAdvice(advice string) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		if advice != "" {
			in.Advice = advice
		}
		return in
	}
}

func WithError(err error) ErrorMessageOption {
	return func(in *ErrorMessage) *ErrorMessage {
		if err != nil {
			in.Cause = err
		}
		return in
	}
}

func NewErrorMessage(code int, reason string, opts ...ErrorMessageOption) *echo.HTTPError {
	msg := ErrorMessage{Reason: reason}
	for _, opt := range opts {
		msg = *opt(&msg)
	}

	return echo.NewHTTPError(code, msg).SetInternal(msg)
}

func ServiceUnavailable(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusServiceUnavailable,
		"service unavailable temporaly",
		WithAdvice(advice),
		WithError(err),
	)
}

func NotFound(advice string) *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, "not found", WithAdvice(advice))
}

func BadRequest(advice string, err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusBadRequest,
		"bad request",
		WithAdvice(advice),
		WithError(err),
	)
}

func InternalServerError(err error) *echo.HTTPError {
	return NewErrorMessage(
		http.StatusInternalServerError,
		"unexpected error",
		WithError(err),
	)
}

// From translates errors of the association engine into HTTP errors.
func From(err error) *echo.HTTPError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domerr.ErrMissing):
		return NotFound(err.Error())
	case errors.Is(err, domerr.ErrUsage):
		return BadRequest(err.Error(), err)
	case domerr.IsTransient(err):
		return ServiceUnavailable("retry later.", err)
	}
	return InternalServerError(err)
}
