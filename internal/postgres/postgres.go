package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Client wraps a PostgreSQL connection used for lock and activity
// diagnostics.
type Client struct {
	db *sql.DB
}

// Error is the generic failure kind for PostgreSQL operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("postgres: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, err error) error { return &Error{Op: op, Err: err} }

// Config holds connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewClient opens a connection pool and verifies it with a ping.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "prefer"
	}

	parts := []string{
		fmt.Sprintf("host=%s", cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		fmt.Sprintf("user=%s", cfg.User),
		fmt.Sprintf("dbname=%s", cfg.Database),
		fmt.Sprintf("sslmode=%s", cfg.SSLMode),
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}

	db, err := sql.Open("postgres", strings.Join(parts, " "))
	if err != nil {
		return nil, opErr("open connection", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, opErr(fmt.Sprintf("connect to %s:%d/%s", cfg.Host, cfg.Port, cfg.Database), err)
	}

	return &Client{db: db}, nil
}

// NewClientFromDB wraps an existing connection pool. Close on the
// returned client closes db.
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// BlockedQuery pairs a waiting backend with the backend blocking it.
type BlockedQuery struct {
	BlockedPID      int       `json:"blocked_pid"`
	BlockedApp      string    `json:"blocked_application,omitempty"`
	BlockedQuery    string    `json:"blocked_query"`
	BlockedState    string    `json:"blocked_state"`
	BlockedWaitType string    `json:"blocked_wait_type,omitempty"`
	BlockedWait     string    `json:"blocked_wait_event,omitempty"`
	BlockedStart    time.Time `json:"blocked_query_start"`
	BlockingPID     int       `json:"blocking_pid"`
	BlockingApp     string    `json:"blocking_application,omitempty"`
	BlockingQuery   string    `json:"blocking_query"`
	BlockingState   string    `json:"blocking_state"`
}

// BlockingQuery is a backend holding up others, with the set it blocks.
type BlockingQuery struct {
	PID          int     `json:"pid"`
	App          string  `json:"application,omitempty"`
	Query        string  `json:"query"`
	State        string  `json:"state"`
	QueryStart   string  `json:"query_start,omitempty"`
	BlockedCount int     `json:"blocked_count"`
	BlockedPIDs  []int64 `json:"blocked_pids"`
}

// Lock is one entry of the lock chain report.
type Lock struct {
	LockType    string  `json:"locktype"`
	Table       string  `json:"table,omitempty"`
	Mode        string  `json:"mode"`
	Granted     bool    `json:"granted"`
	PID         int     `json:"pid"`
	Query       string  `json:"query"`
	App         string  `json:"application,omitempty"`
	ClientAddr  string  `json:"client_addr,omitempty"`
	PIDChain    []int64 `json:"pid_chain"`
	ChainLength int     `json:"chain_length"`
}

// ActiveQuery is a non-idle backend.
type ActiveQuery struct {
	PID      int       `json:"pid"`
	User     string    `json:"user,omitempty"`
	App      string    `json:"application,omitempty"`
	State    string    `json:"state"`
	Query    string    `json:"query"`
	Start    time.Time `json:"query_start"`
	Duration string    `json:"duration"`
}

// KillResult reports the outcome of terminating one backend.
type KillResult struct {
	PID        int    `json:"pid"`
	Terminated bool   `json:"terminated"`
	Error      string `json:"error,omitempty"`
}

const blockedQueriesSQL = `
SELECT
    blocked.pid AS blocked_pid,
    blocked.application_name AS blocked_application,
    blocked.query AS blocked_query,
    blocked.state AS blocked_state,
    blocked.wait_event_type AS blocked_wait_type,
    blocked.wait_event AS blocked_wait_event,
    blocked.query_start AS blocked_query_start,
    blocking.pid AS blocking_pid,
    blocking.application_name AS blocking_application,
    blocking.query AS blocking_query,
    blocking.state AS blocking_state
FROM pg_stat_activity blocked
JOIN pg_stat_activity blocking
    ON blocking.pid = ANY(pg_blocking_pids(blocked.pid))
WHERE blocked.pid != blocking.pid
ORDER BY blocked.xact_start`

// BlockedQueries lists backends waiting on locks together with the
// backends blocking them.
func (c *Client) BlockedQueries(ctx context.Context) ([]BlockedQuery, error) {
	rows, err := c.db.QueryContext(ctx, blockedQueriesSQL)
	if err != nil {
		return nil, opErr("get blocked queries", err)
	}
	defer rows.Close()

	var result []BlockedQuery
	for rows.Next() {
		var q BlockedQuery
		var app, waitType, waitEvent, blockingApp sql.NullString
		var start sql.NullTime
		err := rows.Scan(
			&q.BlockedPID, &app, &q.BlockedQuery, &q.BlockedState,
			&waitType, &waitEvent, &start,
			&q.BlockingPID, &blockingApp, &q.BlockingQuery, &q.BlockingState,
		)
		if err != nil {
			return nil, opErr("get blocked queries", err)
		}
		q.BlockedApp = app.String
		q.BlockedWaitType = waitType.String
		q.BlockedWait = waitEvent.String
		q.BlockedStart = start.Time
		q.BlockingApp = blockingApp.String
		result = append(result, q)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr("get blocked queries", err)
	}
	return result, nil
}

const blockingQueriesSQL = `
SELECT
    blocking.pid,
    blocking.application_name,
    blocking.query,
    blocking.state,
    blocking.query_start,
    COUNT(blocked.pid) AS blocked_process_count,
    array_agg(blocked.pid) AS blocked_pids
FROM pg_stat_activity blocking
JOIN pg_stat_activity blocked
    ON blocking.pid = ANY(pg_blocking_pids(blocked.pid))
WHERE blocked.pid != blocking.pid
GROUP BY
    blocking.pid,
    blocking.application_name,
    blocking.query,
    blocking.state,
    blocking.query_start
ORDER BY COUNT(blocked.pid) DESC`

// BlockingQueries lists backends that block others, most disruptive
// first.
func (c *Client) BlockingQueries(ctx context.Context) ([]BlockingQuery, error) {
	rows, err := c.db.QueryContext(ctx, blockingQueriesSQL)
	if err != nil {
		return nil, opErr("get blocking queries", err)
	}
	defer rows.Close()

	var result []BlockingQuery
	for rows.Next() {
		var q BlockingQuery
		var app sql.NullString
		var start sql.NullTime
		var pids pq.Int64Array
		if err := rows.Scan(&q.PID, &app, &q.Query, &q.State, &start, &q.BlockedCount, &pids); err != nil {
			return nil, opErr("get blocking queries", err)
		}
		q.App = app.String
		if start.Valid {
			q.QueryStart = start.Time.Format("2006-01-02 15:04:05")
		}
		q.BlockedPIDs = pids
		result = append(result, q)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr("get blocking queries", err)
	}
	return result, nil
}

const locksSQL = `
WITH RECURSIVE lock_chain AS (
    SELECT DISTINCT
        lock.locktype,
        lock.relation::regclass::text AS table_name,
        lock.mode,
        lock.granted,
        lock.pid,
        activity.query,
        activity.application_name,
        activity.client_addr,
        ARRAY[lock.pid] AS pid_chain
    FROM pg_locks lock
    JOIN pg_stat_activity activity ON lock.pid = activity.pid
    WHERE lock.pid != pg_backend_pid()

    UNION ALL

    SELECT DISTINCT
        lock.locktype,
        lock.relation::regclass::text AS table_name,
        lock.mode,
        lock.granted,
        lock.pid,
        activity.query,
        activity.application_name,
        activity.client_addr,
        pid_chain || lock.pid
    FROM pg_locks lock
    JOIN pg_stat_activity activity ON lock.pid = activity.pid
    JOIN lock_chain ON lock.pid = ANY(pg_blocking_pids(lock_chain.pid))
    WHERE NOT lock.pid = ANY(lock_chain.pid_chain)
)
SELECT
    locktype,
    table_name,
    mode,
    granted,
    pid,
    query,
    application_name,
    client_addr,
    pid_chain,
    array_length(pid_chain, 1) AS chain_length
FROM lock_chain
ORDER BY pid_chain`

// Locks reports current locks with the chains of backends waiting on
// each other.
func (c *Client) Locks(ctx context.Context) ([]Lock, error) {
	rows, err := c.db.QueryContext(ctx, locksSQL)
	if err != nil {
		return nil, opErr("get locks", err)
	}
	defer rows.Close()

	var result []Lock
	for rows.Next() {
		var l Lock
		var table, app, addr sql.NullString
		var chain pq.Int64Array
		err := rows.Scan(
			&l.LockType, &table, &l.Mode, &l.Granted, &l.PID,
			&l.Query, &app, &addr, &chain, &l.ChainLength,
		)
		if err != nil {
			return nil, opErr("get locks", err)
		}
		l.Table = table.String
		l.App = app.String
		l.ClientAddr = addr.String
		l.PIDChain = chain
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr("get locks", err)
	}
	return result, nil
}

const activeQueriesSQL = `
SELECT
    pid,
    usename,
    application_name,
    state,
    query,
    query_start
FROM pg_stat_activity
WHERE state IS NOT NULL
    AND state != 'idle'
    AND pid != pg_backend_pid()
ORDER BY query_start`

// ActiveQueries lists currently running backends, oldest first.
func (c *Client) ActiveQueries(ctx context.Context) ([]ActiveQuery, error) {
	rows, err := c.db.QueryContext(ctx, activeQueriesSQL)
	if err != nil {
		return nil, opErr("get active queries", err)
	}
	defer rows.Close()

	var result []ActiveQuery
	for rows.Next() {
		var q ActiveQuery
		var user, app sql.NullString
		var start sql.NullTime
		if err := rows.Scan(&q.PID, &user, &app, &q.State, &q.Query, &start); err != nil {
			return nil, opErr("get active queries", err)
		}
		q.User = user.String
		q.App = app.String
		if start.Valid {
			q.Start = start.Time
			q.Duration = time.Since(start.Time).Round(time.Second).String()
		}
		result = append(result, q)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr("get active queries", err)
	}
	return result, nil
}

// KillProcess terminates one backend.
func (c *Client) KillProcess(ctx context.Context, pid int) (bool, error) {
	var terminated bool
	err := c.db.QueryRowContext(ctx, "SELECT pg_terminate_backend($1)", pid).Scan(&terminated)
	if err != nil {
		return false, opErr(fmt.Sprintf("kill process %d", pid), err)
	}
	return terminated, nil
}

// KillProcesses terminates a set of backends, reporting per-PID outcomes.
func (c *Client) KillProcesses(ctx context.Context, pids []int) []KillResult {
	results := make([]KillResult, 0, len(pids))
	for _, pid := range pids {
		terminated, err := c.KillProcess(ctx, pid)
		r := KillResult{PID: pid, Terminated: terminated}
		if err != nil {
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results
}

const blockingPIDsSQL = `
SELECT DISTINCT blocking.pid
FROM pg_stat_activity blocking
JOIN pg_stat_activity blocked
    ON blocking.pid = ANY(pg_blocking_pids(blocked.pid))
WHERE
    blocked.pid != blocking.pid
    AND blocking.query_start < NOW() - $1::interval`

// KillBlockingQueries terminates every backend that blocks others and has
// been running at least minAge.
func (c *Client) KillBlockingQueries(ctx context.Context, minAge time.Duration) ([]KillResult, error) {
	interval := fmt.Sprintf("%d minutes", int(minAge.Minutes()))

	rows, err := c.db.QueryContext(ctx, blockingPIDsSQL, interval)
	if err != nil {
		return nil, opErr("kill blocking queries", err)
	}
	defer rows.Close()

	var pids []int
	for rows.Next() {
		var pid int
		if err := rows.Scan(&pid); err != nil {
			return nil, opErr("kill blocking queries", err)
		}
		pids = append(pids, pid)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr("kill blocking queries", err)
	}

	return c.KillProcesses(ctx, pids), nil
}
