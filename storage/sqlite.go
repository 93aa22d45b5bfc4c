// Package storage provides SQLite persistence for subscriptions, admin
// settings, and chat history.
//
// Information Hiding:
// - SQLite connection management hidden behind the Store type
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database. Thread-safe: sql.DB handles connection
// pooling and concurrent access.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewInMemory creates an in-memory database (useful for testing).
func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &Store{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			cost REAL NOT NULL,
			billing_cycle TEXT NOT NULL DEFAULT 'monthly',
			renewal_date TEXT NOT NULL,
			category TEXT,
			alternative_notes TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_subscriptions_user
		ON subscriptions(user_id, status);

		CREATE TABLE IF NOT EXISTS admin_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			ai_enabled INTEGER NOT NULL DEFAULT 0,
			ai_provider TEXT NOT NULL DEFAULT 'none',
			api_key_encrypted TEXT,
			ollama_model TEXT,
			feature_alternatives INTEGER NOT NULL DEFAULT 0,
			feature_chat INTEGER NOT NULL DEFAULT 0,
			feature_analysis INTEGER NOT NULL DEFAULT 0,
			feature_recommendations INTEGER NOT NULL DEFAULT 0,
			internet_access_enabled INTEGER NOT NULL DEFAULT 0,
			search_method TEXT NOT NULL DEFAULT 'free_scraping',
			search_api_key TEXT,
			tool_calling_enabled INTEGER NOT NULL DEFAULT 1,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		INSERT OR IGNORE INTO admin_settings (id, ai_enabled, ai_provider)
		VALUES (1, 0, 'none');

		CREATE TABLE IF NOT EXISTS chat_sessions (
			session_id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (session_id) REFERENCES chat_sessions(session_id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_chat_messages_session
		ON chat_messages(session_id, id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ---- admin settings ----

// AISettings returns the AI configuration, or (nil, nil) when AI features
// are hard-disabled: no row, ai_enabled off, no credential, or provider
// 'none'.
func (s *Store) AISettings(ctx context.Context) (*AdminSettings, error) {
	var (
		settings AdminSettings
		apiKey   sql.NullString
		ollama   sql.NullString
		searchKy sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT ai_enabled, ai_provider, api_key_encrypted, ollama_model,
		       feature_alternatives, feature_chat, feature_analysis, feature_recommendations,
		       internet_access_enabled, search_method, search_api_key, tool_calling_enabled
		FROM admin_settings WHERE id = 1`).Scan(
		&settings.AIEnabled,
		&settings.AIProvider,
		&apiKey,
		&ollama,
		&settings.FeatureAlternatives,
		&settings.FeatureChat,
		&settings.FeatureAnalysis,
		&settings.FeatureRecommendations,
		&settings.InternetAccessEnabled,
		&settings.SearchMethod,
		&searchKy,
		&settings.ToolCallingEnabled,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load admin settings: %w", err)
	}

	settings.APIKey = apiKey.String
	settings.OllamaModel = ollama.String
	settings.SearchAPIKey = searchKy.String

	if !settings.AIEnabled || settings.APIKey == "" || settings.AIProvider == "none" {
		return nil, nil
	}
	return &settings, nil
}

// SaveSettings upserts the single settings row.
func (s *Store) SaveSettings(ctx context.Context, settings AdminSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO admin_settings
		(id, ai_enabled, ai_provider, api_key_encrypted, ollama_model,
		 feature_alternatives, feature_chat, feature_analysis, feature_recommendations,
		 internet_access_enabled, search_method, search_api_key, tool_calling_enabled, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))`,
		settings.AIEnabled,
		settings.AIProvider,
		settings.APIKey,
		settings.OllamaModel,
		settings.FeatureAlternatives,
		settings.FeatureChat,
		settings.FeatureAnalysis,
		settings.FeatureRecommendations,
		settings.InternetAccessEnabled,
		settings.SearchMethod,
		settings.SearchAPIKey,
		settings.ToolCallingEnabled,
	)
	if err != nil {
		return fmt.Errorf("failed to save admin settings: %w", err)
	}
	return nil
}

// ---- users ----

// CreateUser inserts a user and returns its ID.
func (s *Store) CreateUser(ctx context.Context, username, email string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email) VALUES (?, ?)",
		username, email)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read user id: %w", err)
	}
	return id, nil
}

// ---- subscriptions ----

const subscriptionColumns = `id, user_id, name, cost, billing_cycle, renewal_date,
	COALESCE(category, ''), COALESCE(alternative_notes, ''), status, created_at`

func scanSubscription(row interface{ Scan(...any) error }) (Subscription, error) {
	var sub Subscription
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Name,
		&sub.Cost,
		&sub.BillingCycle,
		&sub.RenewalDate,
		&sub.Category,
		&sub.AlternativeNotes,
		&sub.Status,
		&sub.CreatedAt,
	)
	if err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// CreateSubscription inserts a subscription and returns its ID.
func (s *Store) CreateSubscription(ctx context.Context, sub Subscription) (int64, error) {
	if sub.BillingCycle == "" {
		sub.BillingCycle = CycleMonthly
	}
	if sub.Status == "" {
		sub.Status = StatusActive
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions
		(user_id, name, cost, billing_cycle, renewal_date, category, alternative_notes, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.UserID, sub.Name, sub.Cost, sub.BillingCycle, sub.RenewalDate,
		sub.Category, sub.AlternativeNotes, sub.Status)
	if err != nil {
		return 0, fmt.Errorf("failed to create subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read subscription id: %w", err)
	}
	return id, nil
}

// GetSubscription loads one subscription scoped to its owner.
// Returns nil, nil if not found.
func (s *Store) GetSubscription(ctx context.Context, id, userID int64) (*Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ? AND user_id = ?",
		id, userID)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// ListSubscriptions returns all of a user's subscriptions ordered by renewal
// date.
func (s *Store) ListSubscriptions(ctx context.Context, userID int64) ([]Subscription, error) {
	return s.querySubscriptions(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = ? ORDER BY renewal_date ASC",
		userID)
}

// ActiveSubscriptions returns the user's active subscriptions ordered by
// renewal date.
func (s *Store) ActiveSubscriptions(ctx context.Context, userID int64) ([]Subscription, error) {
	return s.querySubscriptions(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = ? AND status = 'active' ORDER BY renewal_date ASC",
		userID)
}

func (s *Store) querySubscriptions(ctx context.Context, query string, args ...any) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []Subscription{} // Start with empty slice, not nil
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}
	return subs, nil
}

// UpdateSubscription rewrites the mutable fields of a subscription, scoped
// to its owner.
func (s *Store) UpdateSubscription(ctx context.Context, sub Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET name = ?, cost = ?, billing_cycle = ?, renewal_date = ?,
		    category = ?, alternative_notes = ?, status = ?
		WHERE id = ? AND user_id = ?`,
		sub.Name, sub.Cost, sub.BillingCycle, sub.RenewalDate,
		sub.Category, sub.AlternativeNotes, sub.Status,
		sub.ID, sub.UserID)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a subscription, scoped to its owner.
func (s *Store) DeleteSubscription(ctx context.Context, id, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// Dashboard aggregates portfolio stats for a user. Costs are normalized to
// monthly/yearly figures (yearly/12, weekly*4.33; monthly*12, weekly*52).
func (s *Store) Dashboard(ctx context.Context, userID int64) (*DashboardStats, error) {
	stats := &DashboardStats{
		Categories:       []CategorySpend{},
		UpcomingRenewals: []Subscription{},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE
		           WHEN billing_cycle = 'monthly' THEN cost
		           WHEN billing_cycle = 'yearly' THEN cost / 12
		           WHEN billing_cycle = 'weekly' THEN cost * 4.33
		       END), 0),
		       COALESCE(SUM(CASE
		           WHEN billing_cycle = 'monthly' THEN cost * 12
		           WHEN billing_cycle = 'yearly' THEN cost
		           WHEN billing_cycle = 'weekly' THEN cost * 52
		       END), 0)
		FROM subscriptions
		WHERE user_id = ? AND status = 'active'`, userID).Scan(
		&stats.TotalSubscriptions, &stats.MonthlyCost, &stats.YearlyCost)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(category, ''), COUNT(*),
		       COALESCE(SUM(CASE
		           WHEN billing_cycle = 'monthly' THEN cost
		           WHEN billing_cycle = 'yearly' THEN cost / 12
		           WHEN billing_cycle = 'weekly' THEN cost * 4.33
		       END), 0)
		FROM subscriptions
		WHERE user_id = ? AND status = 'active'
		GROUP BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c CategorySpend
		if err := rows.Scan(&c.Category, &c.Count, &c.MonthlyCost); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		stats.Categories = append(stats.Categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	renewals, err := s.querySubscriptions(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = ? AND status = 'active'
		AND renewal_date BETWEEN date('now') AND date('now', '+7 day')
		ORDER BY renewal_date ASC`, userID)
	if err != nil {
		return nil, err
	}
	stats.UpcomingRenewals = renewals

	return stats, nil
}

// ---- chat sessions ----

// EnsureChatSession creates the session row if it doesn't exist.
func (s *Store) EnsureChatSession(ctx context.Context, sessionID string, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO chat_sessions (session_id, user_id) VALUES (?, ?)",
		sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to ensure chat session: %w", err)
	}
	return nil
}

// AppendChatMessage persists one chat turn and bumps the session timestamp.
func (s *Store) AppendChatMessage(ctx context.Context, sessionID, role, content string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO chat_messages (session_id, role, content) VALUES (?, ?, ?)",
		sessionID, role, content)
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE chat_sessions SET updated_at = datetime('now') WHERE session_id = ?",
		sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ChatHistory loads the most recent turns of a session in chronological
// order. A non-positive limit loads everything.
func (s *Store) ChatHistory(ctx context.Context, sessionID string, limit int) ([]ChatTurn, error) {
	query := `
		SELECT role, content FROM (
			SELECT id, role, content FROM chat_messages
			WHERE session_id = ?
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means no limit
	}

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	turns := []ChatTurn{} // Start with empty slice, not nil
	for rows.Next() {
		var turn ChatTurn
		if err := rows.Scan(&turn.Role, &turn.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}
	return turns, nil
}
