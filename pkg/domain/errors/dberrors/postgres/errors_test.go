package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	. "github.com/fitsarchive/calassoc/pkg/domain/errors/dberrors/postgres"
)

func TestClassify(t *testing.T) {
	type when struct {
		err error
	}
	type then struct {
		transient     bool
		configuration bool
		permanent     bool
	}

	theory := func(when when, then then) func(*testing.T) {
		return func(t *testing.T) {
			actual := Classify(when.err)
			if got := domerr.IsTransient(actual); got != then.transient {
				t.Errorf("transient: (actual, expected) = (%v, %v): %v", got, then.transient, actual)
			}
			if got := errors.Is(actual, domerr.ErrConfiguration); got != then.configuration {
				t.Errorf("configuration: (actual, expected) = (%v, %v): %v", got, then.configuration, actual)
			}
			if got := errors.Is(actual, domerr.ErrPermanent); got != then.permanent {
				t.Errorf("permanent: (actual, expected) = (%v, %v): %v", got, then.permanent, actual)
			}
			if !errors.Is(actual, when.err) {
				t.Errorf("cause is lost: %v", actual)
			}
		}
	}

	t.Run("deadlock is transient", theory(
		when{err: &pgconn.PgError{Code: pgerrcode.DeadlockDetected}},
		then{transient: true},
	))
	t.Run("serialization failure is transient", theory(
		when{err: fmt.Errorf("commit: %w", &pgconn.PgError{Code: pgerrcode.SerializationFailure})},
		then{transient: true},
	))
	t.Run("connection failure is transient", theory(
		when{err: &pgconn.PgError{Code: pgerrcode.ConnectionFailure}},
		then{transient: true},
	))
	t.Run("undefined column is configuration", theory(
		when{err: &pgconn.PgError{Code: pgerrcode.UndefinedColumn}},
		then{configuration: true},
	))
	t.Run("check violation is permanent", theory(
		when{err: &pgconn.PgError{Code: pgerrcode.CheckViolation}},
		then{permanent: true},
	))
	t.Run("deadline is transient", theory(
		when{err: context.DeadlineExceeded},
		then{transient: true},
	))
	t.Run("unknown error is permanent", theory(
		when{err: errors.New("scan failed")},
		then{permanent: true},
	))

	t.Run("cancel is kept as it is", func(t *testing.T) {
		if got := Classify(context.Canceled); got != context.Canceled {
			t.Errorf("unexpected: %v", got)
		}
	})
}

func TestMissing(t *testing.T) {
	err := Missing{Table: "frame", Identity: "N20200101S0001.fits"}
	if !errors.Is(err, domerr.ErrMissing) {
		t.Errorf("Missing should be ErrMissing")
	}
}
