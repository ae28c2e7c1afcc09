// Package audit provides components for capturing, storing, and querying audit logs.
// This file implements the PostgreSQL backend, which buffers entries and writes
// them in batches.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"heatgrid/pkg/database"
	"heatgrid/pkg/logger"
)

const (
	// defaultBatchSize is the maximum number of entries written in a single transaction.
	defaultBatchSize = 100
	// writeTimeout bounds each database write issued by the background loop.
	writeTimeout = 5 * time.Second
)

// PostgresLogger implements the Logger interface by writing audit entries to
// an audit_log table. Entries are buffered and flushed in batches; Query reads
// them back with filtering and pagination.
type PostgresLogger struct {
	config *Config
	db     database.DB
	buffer chan *Entry
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewPostgresLogger creates a PostgresLogger on top of an existing database
// handle and starts the background flush loop. The caller keeps ownership of
// the handle; Close stops the loop but does not close the database.
func NewPostgresLogger(db database.DB, cfg *Config) *PostgresLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	l := &PostgresLogger{
		config: cfg,
		db:     db,
		buffer: make(chan *Entry, bufferSize),
		done:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.processLoop()

	return l
}

// Log sends an audit entry to the internal buffer for asynchronous writing.
// If the buffer is full, the entry is inserted synchronously.
func (l *PostgresLogger) Log(ctx context.Context, entry *Entry) error {
	if !l.config.Enabled {
		return nil
	}

	select {
	case l.buffer <- entry:
		return nil
	default:
		// Buffer is full, insert directly (synchronously)
		return l.insertOne(ctx, entry)
	}
}

// Query retrieves audit entries matching the filter, newest first.
func (l *PostgresLogger) Query(ctx context.Context, filter *QueryFilter) ([]*Entry, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}

	where, args := buildWhere(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := fmt.Sprintf(`
		SELECT
			id, ts, service, method, request_id,
			action, outcome,
			user_id, username, client_ip, user_agent,
			resource, resource_id,
			duration_ms, error_code, error_message,
			changes, metadata
		FROM audit_log
		WHERE %s
		ORDER BY ts DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	args = append(args, limit, filter.Offset)

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Close stops the background flush loop and drains any buffered entries.
// The underlying database handle is left open.
func (l *PostgresLogger) Close() error {
	close(l.done)
	l.wg.Wait() // Wait for processLoop to drain and exit
	return nil
}

// processLoop is a goroutine that continuously reads from the buffer,
// aggregates entries into batches, and flushes them to the database either
// when a batch fills up or on every flush period tick.
func (l *PostgresLogger) processLoop() {
	defer l.wg.Done()

	flushPeriod := l.config.FlushPeriod
	if flushPeriod <= 0 {
		flushPeriod = 5 * time.Second
	}

	ticker := time.NewTicker(flushPeriod)
	defer ticker.Stop()

	batch := make([]*Entry, 0, defaultBatchSize)

	for {
		select {
		case <-l.done:
			// Drain the buffer and write everything that is left before exiting
			for {
				select {
				case entry := <-l.buffer:
					batch = append(batch, entry)
				default:
					if len(batch) > 0 {
						l.insertBatch(batch)
					}
					return
				}
			}

		case entry := <-l.buffer:
			batch = append(batch, entry)
			if len(batch) >= defaultBatchSize {
				l.insertBatch(batch)
				batch = make([]*Entry, 0, defaultBatchSize) // Reset batch
			}

		case <-ticker.C:
			if len(batch) > 0 {
				l.insertBatch(batch)
				batch = make([]*Entry, 0, defaultBatchSize) // Reset batch
			}
		}
	}
}

// insertBatch writes a batch of entries in a single transaction. Entries that
// fail to insert are skipped so one bad record does not lose the whole batch.
func (l *PostgresLogger) insertBatch(entries []*Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		logger.Log.Warn("Failed to begin audit batch transaction", "error", err, "count", len(entries))
		return
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Log.Warn("Failed to roll back audit batch", "error", err)
		}
	}()

	failed := 0
	for _, entry := range entries {
		if _, err := tx.Exec(ctx, insertQuery, insertArgs(entry)...); err != nil {
			failed++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Log.Warn("Failed to commit audit batch", "error", err, "count", len(entries))
		return
	}

	if failed > 0 {
		logger.Log.Warn("Some audit entries failed to insert",
			"written", len(entries)-failed,
			"failed", failed,
		)
	}
}

// insertOne writes a single entry outside the batching loop.
func (l *PostgresLogger) insertOne(ctx context.Context, entry *Entry) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if _, err := l.db.Exec(ctx, insertQuery, insertArgs(entry)...); err != nil {
		logger.Log.Warn("Failed to insert audit entry", "error", err)
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

const insertQuery = `
	INSERT INTO audit_log (
		id, ts, service, method, request_id,
		action, outcome,
		user_id, username, client_ip, user_agent,
		resource, resource_id,
		duration_ms, error_code, error_message,
		changes, metadata
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
`

// insertArgs flattens an entry into the positional arguments of insertQuery.
func insertArgs(e *Entry) []any {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}

	var changes any
	if e.Changes != nil {
		if data, err := json.Marshal(e.Changes); err == nil {
			changes = data
		}
	}

	var metadata any
	if len(e.Metadata) > 0 {
		if data, err := json.Marshal(e.Metadata); err == nil {
			metadata = data
		}
	}

	return []any{
		id,
		e.Timestamp,
		e.Service,
		e.Method,
		nullString(e.RequestID),
		string(e.Action),
		string(e.Outcome),
		nullString(e.UserID),
		nullString(e.Username),
		nullString(e.ClientIP),
		nullString(e.UserAgent),
		nullString(e.Resource),
		nullString(e.ResourceID),
		e.DurationMs,
		nullString(e.ErrorCode),
		nullString(e.ErrorMessage),
		changes,
		metadata,
	}
}

// buildWhere assembles the WHERE clause and arguments for a Query call.
// The end of the time range is exclusive.
func buildWhere(f *QueryFilter) (string, []any) {
	conditions := []string{"1=1"}
	args := []any{}

	add := func(format string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, len(args)))
	}

	if f.StartTime != nil {
		add("ts >= $%d", *f.StartTime)
	}
	if f.EndTime != nil {
		add("ts < $%d", *f.EndTime)
	}
	if f.Service != "" {
		add("service = $%d", f.Service)
	}
	if f.Method != "" {
		add("method = $%d", f.Method)
	}
	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if f.Outcome != "" {
		add("outcome = $%d", string(f.Outcome))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Resource != "" {
		add("resource = $%d", f.Resource)
	}
	if f.ResourceID != "" {
		add("resource_id = $%d", f.ResourceID)
	}

	return strings.Join(conditions, " AND "), args
}

// scanEntry reads one row of the Query result set into an Entry.
func scanEntry(rows pgx.Rows) (*Entry, error) {
	entry := &Entry{}
	var (
		requestID, userID, username pgtype.Text
		clientIP, userAgent         pgtype.Text
		resource, resourceID        pgtype.Text
		errorCode, errorMessage     pgtype.Text
		action, outcome             string
		changes, metadata           []byte
	)

	err := rows.Scan(
		&entry.ID,
		&entry.Timestamp,
		&entry.Service,
		&entry.Method,
		&requestID,
		&action,
		&outcome,
		&userID,
		&username,
		&clientIP,
		&userAgent,
		&resource,
		&resourceID,
		&entry.DurationMs,
		&errorCode,
		&errorMessage,
		&changes,
		&metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	entry.Action = Action(action)
	entry.Outcome = Outcome(outcome)
	entry.RequestID = requestID.String
	entry.UserID = userID.String
	entry.Username = username.String
	entry.ClientIP = clientIP.String
	entry.UserAgent = userAgent.String
	entry.Resource = resource.String
	entry.ResourceID = resourceID.String
	entry.ErrorCode = errorCode.String
	entry.ErrorMessage = errorMessage.String

	if len(changes) > 0 {
		var cs ChangeSet
		if err := json.Unmarshal(changes, &cs); err == nil {
			entry.Changes = &cs
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			entry.Metadata = make(map[string]any)
		}
	}

	return entry, nil
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
