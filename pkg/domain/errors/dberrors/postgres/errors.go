package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"

	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
)

// requested data is missing.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s ", m.Identity, m.Table)
}
func (m Missing) Unwrap() error {
	return domerr.ErrMissing
}

// requested data is found too much.
type TooMuch struct {
	Table    string
	Identity string
	Expected int
}

var _ error = TooMuch{}

func (t TooMuch) Error() string {
	return fmt.Sprintf(
		"%s is found in %s more than %d times",
		t.Identity, t.Table, t.Expected,
	)
}

func (t TooMuch) Unwrap() error {
	return domerr.ErrTooMuch
}

// Classify marks errors from the database as transient or permanent.
//
// nil, pgx.ErrNoRows and context.Canceled are returned as they are.
func Classify(err error) error {
	if err == nil ||
		errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, context.Canceled) ||
		domerr.IsTransient(err) ||
		errors.Is(err, domerr.ErrPermanent) ||
		errors.Is(err, domerr.ErrConfiguration) {
		return err
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return domerr.Transient(err)
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		switch {
		case pgerrcode.IsConnectionException(pgerr.Code),
			pgerrcode.IsTransactionRollback(pgerr.Code),
			pgerrcode.IsInsufficientResources(pgerr.Code),
			pgerrcode.IsOperatorIntervention(pgerr.Code),
			pgerr.Code == pgerrcode.LockNotAvailable:
			return domerr.Transient(err)
		case pgerrcode.IsSyntaxErrororAccessRuleViolation(pgerr.Code):
			return fmt.Errorf("%w: %w", domerr.ErrConfiguration, err)
		default:
			return domerr.Permanent(err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domerr.Transient(err)
	}

	return domerr.Permanent(err)
}
