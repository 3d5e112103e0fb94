// Package pool narrows pgx's pool, connection and transaction to the methods
// stores call, so that stores can be handed a wrapped pool in tests.
package pool

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Queryer sends SQL. See pgxpool.Conn for details of each method.
type Queryer interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Beginner starts transactions.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (Tx, error)
}

// Tx is a transaction. Nested Begin makes a savepoint.
type Tx interface {
	Queryer
	Begin(ctx context.Context) (Tx, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Conn is a connection taken from Pool. It should be Release-d.
type Conn interface {
	Queryer
	Beginner
	Release()
}

// Pool is what stores need of *pgxpool.Pool. Wrap makes one.
type Pool interface {
	Beginner
	Acquire(ctx context.Context) (Conn, error)
}

func Wrap(p *pgxpool.Pool) Pool {
	return pgxPool{beginner: beginner{p}, base: p}
}

// *pgxpool.Conn and *pgxpool.Pool begin transactions this way.
type pgxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

func wrapTx(tx pgx.Tx, err error) (Tx, error) {
	if tx == nil {
		return nil, err
	}
	return pgxTx{tx}, err
}

type pgxTx struct {
	pgx.Tx
}

func (tx pgxTx) Begin(ctx context.Context) (Tx, error) {
	return wrapTx(tx.Tx.Begin(ctx))
}

type beginner struct {
	base pgxBeginner
}

func (b beginner) Begin(ctx context.Context) (Tx, error) {
	return wrapTx(b.base.Begin(ctx))
}

func (b beginner) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (Tx, error) {
	return wrapTx(b.base.BeginTx(ctx, txOptions))
}

type pgxConn struct {
	*pgxpool.Conn
	beginner
}

func (c pgxConn) Begin(ctx context.Context) (Tx, error) {
	return c.beginner.Begin(ctx)
}

func (c pgxConn) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (Tx, error) {
	return c.beginner.BeginTx(ctx, txOptions)
}

type pgxPool struct {
	beginner
	base *pgxpool.Pool
}

func (p pgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.base.Acquire(ctx)
	if conn == nil {
		return nil, err
	}
	return pgxConn{Conn: conn, beginner: beginner{conn}}, err
}

var (
	_ Tx   = pgxTx{}
	_ Conn = pgxConn{}
	_ Pool = pgxPool{}
)
