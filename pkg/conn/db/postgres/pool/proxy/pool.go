// Package proxy wraps a pool to observe SQL traffic in tests.
//
// Hooks registered to Pool run around queries, commits and rollbacks on
// every connection and transaction taken from it. Pool also counts
// connections not yet released and transactions not yet closed, so that
// tests can tell a store leaks neither.
package proxy

import (
	"context"
	"sync"

	kpool "github.com/fitsarchive/calassoc/pkg/conn/db/postgres/pool"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

type Hook func(sql string)

type hooks struct {
	before []Hook
	after  []Hook
}

func (h *hooks) invoke(sql string, f func()) {
	for _, cb := range h.before {
		cb(sql)
	}
	defer func() {
		for _, cb := range h.after {
			cb(sql)
		}
	}()
	f()
}

type Pool struct {
	Base kpool.Pool

	mu       sync.Mutex
	query    hooks
	commit   hooks
	rollback hooks

	conns int
	txs   int
}

var _ kpool.Pool = &Pool{}

func Wrap(p kpool.Pool) *Pool {
	return &Pool{Base: p}
}

// OnQuery registers hooks run before and after Exec, Query and QueryRow.
func (p *Pool) OnQuery(before, after Hook) *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	add(&p.query, before, after)
	return p
}

// OnCommit registers hooks run before and after commits.
func (p *Pool) OnCommit(before, after Hook) *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	add(&p.commit, before, after)
	return p
}

// OnRollback registers hooks run before and after rollbacks.
//
// Rollbacks of transactions already committed are not observed.
func (p *Pool) OnRollback(before, after Hook) *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	add(&p.rollback, before, after)
	return p
}

func add(h *hooks, before, after Hook) {
	if before != nil {
		h.before = append(h.before, before)
	}
	if after != nil {
		h.after = append(h.after, after)
	}
}

// Held returns how many connections are acquired and not released.
func (p *Pool) Held() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conns
}

// Open returns how many transactions are neither committed nor rolled back.
func (p *Pool) Open() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txs
}

func (p *Pool) count(conns, txs int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns += conns
	p.txs += txs
}

func (p *Pool) wrapTx(tx kpool.Tx, err error) (kpool.Tx, error) {
	if tx == nil {
		return nil, err
	}
	p.count(0, 1)
	return &Tx{base: tx, pool: p}, err
}

func (p *Pool) Acquire(ctx context.Context) (kpool.Conn, error) {
	conn, err := p.Base.Acquire(ctx)
	if conn == nil {
		return nil, err
	}
	p.count(1, 0)
	return &Conn{base: conn, pool: p}, err
}

func (p *Pool) Begin(ctx context.Context) (kpool.Tx, error) {
	return p.wrapTx(p.Base.Begin(ctx))
}

func (p *Pool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (kpool.Tx, error) {
	return p.wrapTx(p.Base.BeginTx(ctx, txOptions))
}

type Tx struct {
	base kpool.Tx
	pool *Pool

	once sync.Once
}

var _ kpool.Tx = &Tx{}

func (tx *Tx) close() {
	tx.once.Do(func() { tx.pool.count(0, -1) })
}

func (tx *Tx) Begin(ctx context.Context) (kpool.Tx, error) {
	return tx.pool.wrapTx(tx.base.Begin(ctx))
}

func (tx *Tx) Commit(ctx context.Context) (err error) {
	tx.pool.commit.invoke("COMMIT", func() {
		err = tx.base.Commit(ctx)
	})
	tx.close()
	return
}

func (tx *Tx) Rollback(ctx context.Context) (err error) {
	closed := true
	tx.once.Do(func() { closed = false })
	if closed {
		return tx.base.Rollback(ctx)
	}
	tx.pool.rollback.invoke("ROLLBACK", func() {
		err = tx.base.Rollback(ctx)
	})
	tx.pool.count(0, -1)
	return
}

func (tx *Tx) Exec(ctx context.Context, sql string, arguments ...interface{}) (ctag pgconn.CommandTag, err error) {
	tx.pool.query.invoke(sql, func() {
		ctag, err = tx.base.Exec(ctx, sql, arguments...)
	})
	return
}

func (tx *Tx) Query(ctx context.Context, sql string, args ...interface{}) (rows pgx.Rows, err error) {
	tx.pool.query.invoke(sql, func() {
		rows, err = tx.base.Query(ctx, sql, args...)
	})
	return
}

func (tx *Tx) QueryRow(ctx context.Context, sql string, args ...interface{}) (row pgx.Row) {
	tx.pool.query.invoke(sql, func() {
		row = tx.base.QueryRow(ctx, sql, args...)
	})
	return
}

type Conn struct {
	base kpool.Conn
	pool *Pool

	once sync.Once
}

var _ kpool.Conn = &Conn{}

func (c *Conn) Begin(ctx context.Context) (kpool.Tx, error) {
	return c.pool.wrapTx(c.base.Begin(ctx))
}

func (c *Conn) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (kpool.Tx, error) {
	return c.pool.wrapTx(c.base.BeginTx(ctx, txOptions))
}

func (c *Conn) Release() {
	c.once.Do(func() { c.pool.count(-1, 0) })
	c.base.Release()
}

func (c *Conn) Exec(ctx context.Context, sql string, arguments ...interface{}) (ctag pgconn.CommandTag, err error) {
	c.pool.query.invoke(sql, func() {
		ctag, err = c.base.Exec(ctx, sql, arguments...)
	})
	return
}

func (c *Conn) Query(ctx context.Context, sql string, args ...interface{}) (rows pgx.Rows, err error) {
	c.pool.query.invoke(sql, func() {
		rows, err = c.base.Query(ctx, sql, args...)
	})
	return
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...interface{}) (row pgx.Row) {
	c.pool.query.invoke(sql, func() {
		row = c.base.QueryRow(ctx, sql, args...)
	})
	return
}
