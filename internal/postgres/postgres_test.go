package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Client{db: db}, mock
}

func TestBlockedQueries(t *testing.T) {
	client, mock := newMockClient(t)

	start := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"blocked_pid", "blocked_application", "blocked_query", "blocked_state",
		"blocked_wait_type", "blocked_wait_event", "blocked_query_start",
		"blocking_pid", "blocking_application", "blocking_query", "blocking_state",
	}).AddRow(
		101, "worker", "UPDATE jobs SET state = 'done'", "active",
		"Lock", "transactionid", start,
		202, nil, "VACUUM FULL jobs", "active",
	)
	mock.ExpectQuery("FROM pg_stat_activity blocked").WillReturnRows(rows)

	blocked, err := client.BlockedQueries(context.Background())
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, 101, blocked[0].BlockedPID)
	assert.Equal(t, "worker", blocked[0].BlockedApp)
	assert.Equal(t, "Lock", blocked[0].BlockedWaitType)
	assert.Equal(t, start, blocked[0].BlockedStart)
	assert.Equal(t, 202, blocked[0].BlockingPID)
	assert.Empty(t, blocked[0].BlockingApp)
	assert.Equal(t, "VACUUM FULL jobs", blocked[0].BlockingQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockingQueries(t *testing.T) {
	client, mock := newMockClient(t)

	rows := sqlmock.NewRows([]string{
		"pid", "application_name", "query", "state", "query_start",
		"blocked_process_count", "blocked_pids",
	}).AddRow(
		202, "psql", "VACUUM FULL jobs", "active",
		time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		2, "{101,102}",
	)
	mock.ExpectQuery("FROM pg_stat_activity blocking").WillReturnRows(rows)

	blocking, err := client.BlockingQueries(context.Background())
	require.NoError(t, err)
	require.Len(t, blocking, 1)
	assert.Equal(t, 202, blocking[0].PID)
	assert.Equal(t, 2, blocking[0].BlockedCount)
	assert.Equal(t, []int64{101, 102}, blocking[0].BlockedPIDs)
	assert.Equal(t, "2026-02-01 09:00:00", blocking[0].QueryStart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocks(t *testing.T) {
	client, mock := newMockClient(t)

	rows := sqlmock.NewRows([]string{
		"locktype", "table_name", "mode", "granted", "pid",
		"query", "application_name", "client_addr", "pid_chain", "chain_length",
	}).AddRow(
		"relation", "jobs", "AccessExclusiveLock", true, 202,
		"VACUUM FULL jobs", "psql", "10.0.0.5", "{202}", 1,
	).AddRow(
		"relation", "jobs", "RowExclusiveLock", false, 101,
		"UPDATE jobs SET state = 'done'", nil, nil, "{202,101}", 2,
	)
	mock.ExpectQuery("WITH RECURSIVE lock_chain").WillReturnRows(rows)

	locks, err := client.Locks(context.Background())
	require.NoError(t, err)
	require.Len(t, locks, 2)
	assert.True(t, locks[0].Granted)
	assert.Equal(t, []int64{202}, locks[0].PIDChain)
	assert.False(t, locks[1].Granted)
	assert.Equal(t, []int64{202, 101}, locks[1].PIDChain)
	assert.Equal(t, 2, locks[1].ChainLength)
	assert.Empty(t, locks[1].ClientAddr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveQueries(t *testing.T) {
	client, mock := newMockClient(t)

	rows := sqlmock.NewRows([]string{
		"pid", "usename", "application_name", "state", "query", "query_start",
	}).AddRow(
		77, "app_rw", "api", "active", "SELECT count(*) FROM events",
		time.Now().Add(-90*time.Second),
	)
	mock.ExpectQuery("FROM pg_stat_activity").WillReturnRows(rows)

	active, err := client.ActiveQueries(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 77, active[0].PID)
	assert.Equal(t, "app_rw", active[0].User)
	assert.NotEmpty(t, active[0].Duration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKillProcess(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery("SELECT pg_terminate_backend").
		WithArgs(101).
		WillReturnRows(sqlmock.NewRows([]string{"pg_terminate_backend"}).AddRow(true))

	terminated, err := client.KillProcess(context.Background(), 101)
	require.NoError(t, err)
	assert.True(t, terminated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKillProcesses(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery("SELECT pg_terminate_backend").
		WithArgs(101).
		WillReturnRows(sqlmock.NewRows([]string{"pg_terminate_backend"}).AddRow(true))
	mock.ExpectQuery("SELECT pg_terminate_backend").
		WithArgs(102).
		WillReturnError(errors.New("permission denied"))

	results := client.KillProcesses(context.Background(), []int{101, 102})
	require.Len(t, results, 2)
	assert.True(t, results[0].Terminated)
	assert.Empty(t, results[0].Error)
	assert.False(t, results[1].Terminated)
	assert.Contains(t, results[1].Error, "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKillBlockingQueries(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery("SELECT DISTINCT blocking.pid").
		WithArgs("10 minutes").
		WillReturnRows(sqlmock.NewRows([]string{"pid"}).AddRow(202))
	mock.ExpectQuery("SELECT pg_terminate_backend").
		WithArgs(202).
		WillReturnRows(sqlmock.NewRows([]string{"pg_terminate_backend"}).AddRow(true))

	results, err := client.KillBlockingQueries(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 202, results[0].PID)
	assert.True(t, results[0].Terminated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryErrorSurfaces(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery("FROM pg_stat_activity blocked").
		WillReturnError(errors.New("connection reset"))

	_, err := client.BlockedQueries(context.Background())
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "get blocked queries", perr.Op)
	assert.Contains(t, err.Error(), "postgres: get blocked queries: connection reset")
}
