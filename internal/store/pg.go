package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG backs the Store with Postgres. Set atomicity comes from the primary key
// on (key, member); counters from a single upsert statement per adjustment.
type PG struct {
	Pool *pgxpool.Pool
}

func NewPG(dsn string) (*PG, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &PG{Pool: pool}, nil
}

func (p *PG) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

func (p *PG) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return p.Pool.Ping(ctx)
}

func (p *PG) SetAdd(ctx context.Context, key, member string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	tag, err := p.Pool.Exec(ctx,
		`INSERT INTO kv_sets (key, member) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		key, member)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PG) SetRemove(ctx context.Context, key, member string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	tag, err := p.Pool.Exec(ctx,
		`DELETE FROM kv_sets WHERE key = $1 AND member = $2`, key, member)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PG) SetHas(ctx context.Context, key, member string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	var ok bool
	err := p.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM kv_sets WHERE key = $1 AND member = $2)`,
		key, member).Scan(&ok)
	return ok, err
}

func (p *PG) SetCard(ctx context.Context, key string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	var n int64
	err := p.Pool.QueryRow(ctx,
		`SELECT count(*) FROM kv_sets WHERE key = $1`, key).Scan(&n)
	return n, err
}

func (p *PG) SetMembers(ctx context.Context, key string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	rows, err := p.Pool.Query(ctx,
		`SELECT member FROM kv_sets WHERE key = $1`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *PG) SetClear(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	_, err := p.Pool.Exec(ctx, `DELETE FROM kv_sets WHERE key = $1`, key)
	return err
}

func (p *PG) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	var n int64
	err := p.Pool.QueryRow(ctx,
		`INSERT INTO kv_counters (key, n) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET n = kv_counters.n + $2
		 RETURNING n`, key, delta).Scan(&n)
	return n, err
}

func (p *PG) Counter(ctx context.Context, key string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	var n int64
	err := p.Pool.QueryRow(ctx,
		`SELECT n FROM kv_counters
		 WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`,
		key).Scan(&n)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return n, err
}

func (p *PG) IncrWindow(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	var n int64
	err := p.Pool.QueryRow(ctx,
		`INSERT INTO kv_counters (key, n, expires_at) VALUES ($1, 1, now() + $2)
		 ON CONFLICT (key) DO UPDATE SET
		   n = CASE WHEN kv_counters.expires_at IS NOT NULL AND kv_counters.expires_at <= now()
		            THEN 1 ELSE kv_counters.n + 1 END,
		   expires_at = CASE WHEN kv_counters.expires_at IS NOT NULL AND kv_counters.expires_at <= now()
		                     THEN now() + $2 ELSE kv_counters.expires_at END
		 RETURNING n`, key, ttl).Scan(&n)
	return n, err
}

func (p *PG) PutValue(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	_, err := p.Pool.Exec(ctx,
		`INSERT INTO kv_values (key, v) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET v = $2`, key, value)
	return err
}

func (p *PG) GetValue(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	var v []byte
	err := p.Pool.QueryRow(ctx,
		`SELECT v FROM kv_values WHERE key = $1`, key).Scan(&v)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (p *PG) DeleteValue(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	_, err := p.Pool.Exec(ctx, `DELETE FROM kv_values WHERE key = $1`, key)
	return err
}

func (p *PG) DeleteKeys(ctx context.Context, keys ...string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	for _, q := range []string{
		`DELETE FROM kv_sets WHERE key = ANY($1)`,
		`DELETE FROM kv_counters WHERE key = ANY($1)`,
		`DELETE FROM kv_values WHERE key = ANY($1)`,
	} {
		if _, err := p.Pool.Exec(ctx, q, keys); err != nil {
			return err
		}
	}
	return nil
}

func (p *PG) WipePrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	pattern := prefix + "%"
	for _, q := range []string{
		`DELETE FROM kv_sets WHERE key LIKE $1`,
		`DELETE FROM kv_counters WHERE key LIKE $1`,
		`DELETE FROM kv_values WHERE key LIKE $1`,
	} {
		if _, err := p.Pool.Exec(ctx, q, pattern); err != nil {
			return err
		}
	}
	return nil
}
