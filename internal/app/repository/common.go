package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "dubstudio/internal/app/errors"
	"dubstudio/internal/app/model"
)

// CommonDB provides the SQL implementation shared by the SQLite and PostgreSQL backends
type CommonDB struct {
	db           *sql.DB
	driverName   string
	placeholders PlaceholderFunc
	lockClause   string
}

// PlaceholderFunc generates parameter placeholders for different SQL dialects
type PlaceholderFunc func(n int) string

// NewCommonDB creates a new CommonDB instance
func NewCommonDB(db *sql.DB, driverName string) *CommonDB {
	var placeholders PlaceholderFunc
	lockClause := ""

	switch driverName {
	case "sqlite3":
		placeholders = func(n int) string { return "?" }
	case "postgres":
		placeholders = func(n int) string { return fmt.Sprintf("$%d", n) }
		lockClause = " FOR UPDATE"
	default:
		placeholders = func(n int) string { return "?" }
	}

	return &CommonDB{
		db:           db,
		driverName:   driverName,
		placeholders: placeholders,
		lockClause:   lockClause,
	}
}

// DB returns the underlying connection pool
func (c *CommonDB) DB() *sql.DB {
	return c.db
}

// Migrate creates tables and indexes
func (c *CommonDB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (c *CommonDB) Close() error {
	return c.db.Close()
}

// phs returns placeholders from..from+n-1 joined by commas
func (c *CommonDB) phs(from, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = c.placeholders(from + i)
	}
	return strings.Join(parts, ", ")
}

const jobColumns = `id, owner_id, kind, status, status_detail, progress, inputs, artifacts,
	translated_text, error_message, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job       model.Job
		kind      string
		status    string
		inputs    string
		artifacts string
	)
	err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&kind,
		&status,
		&job.StatusDetail,
		&job.Progress,
		&inputs,
		&artifacts,
		&job.TranslatedText,
		&job.ErrorMessage,
		&job.Version,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Kind = model.JobKind(kind)
	job.Status = model.JobStatus(status)

	if err := json.Unmarshal([]byte(inputs), &job.Inputs); err != nil {
		return nil, fmt.Errorf("decode inputs of job %s: %w", job.ID, err)
	}
	job.Artifacts = map[string]string{}
	if artifacts != "" {
		if err := json.Unmarshal([]byte(artifacts), &job.Artifacts); err != nil {
			return nil, fmt.Errorf("decode artifacts of job %s: %w", job.ID, err)
		}
	}
	return &job, nil
}

func encodeArtifacts(artifacts map[string]string) (string, error) {
	if artifacts == nil {
		artifacts = map[string]string{}
	}
	b, err := json.Marshal(artifacts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateJob inserts a new job record
func (c *CommonDB) CreateJob(ctx context.Context, job *model.Job) error {
	inputs, err := json.Marshal(job.Inputs)
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}
	artifacts, err := encodeArtifacts(job.Artifacts)
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}

	query := fmt.Sprintf(
		`INSERT INTO jobs (collection, %s) VALUES (%s)`,
		jobColumns, c.phs(1, 14),
	)
	_, err = c.db.ExecContext(ctx, query,
		job.Kind.Collection(),
		job.ID,
		job.OwnerID,
		string(job.Kind),
		string(job.Status),
		job.StatusDetail,
		job.Progress,
		string(inputs),
		artifacts,
		job.TranslatedText,
		job.ErrorMessage,
		job.Version,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job failed: %w", err)
	}
	return nil
}

// GetJob retrieves a job by id
func (c *CommonDB) GetJob(ctx context.Context, id string) (*model.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = %s`, jobColumns, c.placeholders(1))
	job, err := scanJob(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query job failed: %w", err)
	}
	return job, nil
}

// UpdateJob applies fn to the stored job inside a transaction
func (c *CommonDB) UpdateJob(ctx context.Context, id string, fn MutateFunc) (*model.Job, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = %s%s`, jobColumns, c.placeholders(1), c.lockClause)
	job, err := scanJob(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query job failed: %w", err)
	}

	if err := fn(job); err != nil {
		return nil, err
	}

	artifacts, err := encodeArtifacts(job.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("encode artifacts: %w", err)
	}

	update := fmt.Sprintf(
		`UPDATE jobs SET status = %s, status_detail = %s, progress = %s, artifacts = %s,
			translated_text = %s, error_message = %s, version = %s, updated_at = %s
		 WHERE id = %s`,
		c.placeholders(1), c.placeholders(2), c.placeholders(3), c.placeholders(4),
		c.placeholders(5), c.placeholders(6), c.placeholders(7), c.placeholders(8),
		c.placeholders(9),
	)
	if _, err := tx.ExecContext(ctx, update,
		string(job.Status),
		job.StatusDetail,
		job.Progress,
		artifacts,
		job.TranslatedText,
		job.ErrorMessage,
		job.Version,
		job.UpdatedAt,
		job.ID,
	); err != nil {
		return nil, fmt.Errorf("update job failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}
	return job, nil
}

// DeleteJob removes a job record
func (c *CommonDB) DeleteJob(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM jobs WHERE id = %s`, c.placeholders(1))
	res, err := c.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete job failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.ErrJobNotFound
	}
	return nil
}

// ListJobs returns jobs matching filter, newest first
func (c *CommonDB) ListJobs(ctx context.Context, filter model.JobFilter) ([]*model.Job, error) {
	var (
		where []string
		args  []interface{}
	)
	next := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, c.placeholders(len(args))))
	}

	if filter.OwnerID != "" {
		next("owner_id = %s", filter.OwnerID)
	}
	if filter.Kind != "" {
		next("kind = %s", string(filter.Kind))
	}
	if len(filter.Statuses) > 0 {
		phs := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			args = append(args, string(s))
			phs[i] = c.placeholders(len(args))
		}
		where = append(where, fmt.Sprintf("status IN (%s)", strings.Join(phs, ", ")))
	}
	if !filter.UpdatedBefore.IsZero() {
		next("updated_at < %s", filter.UpdatedBefore)
	}

	query := fmt.Sprintf(`SELECT %s FROM jobs`, jobColumns)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT " + c.placeholders(len(args))
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	jobs := make([]*model.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return jobs, nil
}

const sessionColumns = `id, owner_id, status, created_at, last_interaction`

func scanSession(row rowScanner) (*model.ChatSession, error) {
	var (
		s      model.ChatSession
		status string
		last   sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.OwnerID, &status, &s.CreatedAt, &last); err != nil {
		return nil, err
	}
	s.Status = model.SessionStatus(status)
	if last.Valid {
		t := last.Time
		s.LastInteraction = &t
	}
	return &s, nil
}

// ActiveSession returns the newest active session of an owner
func (c *CommonDB) ActiveSession(ctx context.Context, ownerID string) (*model.ChatSession, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM chat_sessions WHERE owner_id = %s AND status = %s ORDER BY created_at DESC LIMIT 1`,
		sessionColumns, c.placeholders(1), c.placeholders(2),
	)
	s, err := scanSession(c.db.QueryRowContext(ctx, query, ownerID, string(model.SessionActive)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session failed: %w", err)
	}
	return s, nil
}

// CreateSession inserts a new chat session
func (c *CommonDB) CreateSession(ctx context.Context, session *model.ChatSession) error {
	query := fmt.Sprintf(`INSERT INTO chat_sessions (%s) VALUES (%s)`, sessionColumns, c.phs(1, 5))
	var last interface{}
	if session.LastInteraction != nil {
		last = *session.LastInteraction
	}
	if _, err := c.db.ExecContext(ctx, query,
		session.ID, session.OwnerID, string(session.Status), session.CreatedAt, last,
	); err != nil {
		return fmt.Errorf("insert session failed: %w", err)
	}
	return nil
}

// GetSession retrieves a chat session by id
func (c *CommonDB) GetSession(ctx context.Context, id string) (*model.ChatSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM chat_sessions WHERE id = %s`, sessionColumns, c.placeholders(1))
	s, err := scanSession(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session failed: %w", err)
	}
	return s, nil
}

// TouchSession records the time of the last assistant interaction
func (c *CommonDB) TouchSession(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE chat_sessions SET last_interaction = %s WHERE id = %s`,
		c.placeholders(1), c.placeholders(2))
	res, err := c.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("update session failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

const messageColumns = `id, session_id, sender, content, type, is_error, original_message_id, user_id, created_at`

func scanMessage(row rowScanner) (*model.ChatMessage, error) {
	var m model.ChatMessage
	err := row.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Content, &m.Type, &m.Error,
		&m.OriginalMessageID, &m.UserID, &m.Timestamp)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AppendMessage inserts a message into a session log
func (c *CommonDB) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	query := fmt.Sprintf(`INSERT INTO chat_messages (%s) VALUES (%s)`, messageColumns, c.phs(1, 9))
	if _, err := c.db.ExecContext(ctx, query,
		msg.ID, msg.SessionID, msg.Sender, msg.Content, msg.Type, msg.Error,
		msg.OriginalMessageID, msg.UserID, msg.Timestamp,
	); err != nil {
		return fmt.Errorf("insert message failed: %w", err)
	}
	return nil
}

// MessagesBefore returns messages older than before, newest first
func (c *CommonDB) MessagesBefore(ctx context.Context, sessionID string, before time.Time, limit int) ([]*model.ChatMessage, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM chat_messages WHERE session_id = %s AND created_at < %s ORDER BY created_at DESC LIMIT %s`,
		messageColumns, c.placeholders(1), c.placeholders(2), c.placeholders(3),
	)
	return c.queryMessages(ctx, query, sessionID, before, limit)
}

// LatestMessages returns the most recent messages, newest first
func (c *CommonDB) LatestMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM chat_messages WHERE session_id = %s ORDER BY created_at DESC LIMIT %s`,
		messageColumns, c.placeholders(1), c.placeholders(2),
	)
	return c.queryMessages(ctx, query, sessionID, limit)
}

func (c *CommonDB) queryMessages(ctx context.Context, query string, args ...interface{}) ([]*model.ChatMessage, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	messages := make([]*model.ChatMessage, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		messages = append(messages, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return messages, nil
}
