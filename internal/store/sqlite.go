package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/hocduong/assistant/internal/session"
)

// Store is the SQLite-backed Gateway implementation.
type Store struct {
	db *sql.DB
}

var _ Gateway = (*Store)(nil)

// Open opens (creating if needed) the SQLite database at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			user_id TEXT,
			sender TEXT NOT NULL,
			message_content TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			is_greeting INTEGER NOT NULL DEFAULT 0,
			is_emergency INTEGER NOT NULL DEFAULT 0,
			related_alert_id TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			chat_session_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			snippet TEXT NOT NULL,
			priority INTEGER NOT NULL,
			status TEXT NOT NULL,
			assignee TEXT,
			timestamp DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveMessage stores one conversation turn.
func (s *Store) SaveMessage(ctx context.Context, userID string, msg session.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, user_id, sender, message_content, timestamp, is_greeting, is_emergency, related_alert_id)
		 VALUES (?,?,?,?,?,?,?,?);`,
		msg.SessionID, userID, string(msg.Sender), msg.Content, msg.Timestamp,
		msg.IsGreeting, msg.IsEmergency, nullable(msg.RelatedAlertID))
	return err
}

// CreateAlert stores a new alert, minting its id, and returns that id.
func (s *Store) CreateAlert(ctx context.Context, alert Alert) (string, error) {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Status == "" {
		alert.Status = StatusNew
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, chat_session_id, reason, snippet, priority, status, assignee, timestamp)
		 VALUES (?,?,?,?,?,?,?,?);`,
		alert.ID, alert.SessionID, alert.Reason, alert.Snippet, alert.Priority,
		string(alert.Status), nullable(alert.Assignee), alert.Timestamp)
	if err != nil {
		return "", err
	}
	return alert.ID, nil
}

// UpdateAlertStatus moves an alert through the review workflow.
func (s *Store) UpdateAlertStatus(ctx context.Context, alertID string, status AlertStatus, assignee string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET status = ?, assignee = ? WHERE id = ?;`,
		string(status), nullable(assignee), alertID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAlert fetches one alert by id.
func (s *Store) GetAlert(ctx context.Context, alertID string) (Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_session_id, reason, snippet, priority, status, assignee, timestamp
		 FROM alerts WHERE id = ?;`, alertID)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Alert{}, ErrNotFound
	}
	return a, err
}

// ListAlerts returns alerts newest first, optionally filtered by status.
func (s *Store) ListAlerts(ctx context.Context, status AlertStatus) ([]Alert, error) {
	query := `SELECT id, chat_session_id, reason, snippet, priority, status, assignee, timestamp
		FROM alerts`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY timestamp DESC;`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListMessages returns all messages of a session in insertion order.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]session.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, sender, message_content, timestamp, is_greeting, is_emergency, related_alert_id
		 FROM messages WHERE session_id = ? ORDER BY id ASC;`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.Message
	for rows.Next() {
		var m session.Message
		var sender string
		var alertID sql.NullString
		if err := rows.Scan(&m.SessionID, &sender, &m.Content, &m.Timestamp,
			&m.IsGreeting, &m.IsEmergency, &alertID); err != nil {
			return nil, err
		}
		m.Sender = session.Sender(sender)
		m.RelatedAlertID = alertID.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetStats returns the dashboard counters: conversations seen in the last 7
// days and alerts still in the New state.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	weekAgo := time.Now().AddDate(0, 0, -7)
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT session_id) FROM messages WHERE timestamp > ?;`, weekAgo).
		Scan(&stats.WeeklyConversations); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE status = ?;`, string(StatusNew)).
		Scan(&stats.NewAlerts); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (Alert, error) {
	var a Alert
	var status string
	var assignee sql.NullString
	if err := row.Scan(&a.ID, &a.SessionID, &a.Reason, &a.Snippet, &a.Priority,
		&status, &assignee, &a.Timestamp); err != nil {
		return Alert{}, err
	}
	a.Status = AlertStatus(status)
	a.Assignee = assignee.String
	return a, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
