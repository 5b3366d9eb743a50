package storage

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// New creates a new Storage instance and initializes the database
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			chat_id INTEGER PRIMARY KEY,
			username TEXT,
			language TEXT NOT NULL DEFAULT 'en',
			joined_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			stars_amount INTEGER NOT NULL,
			ton_amount REAL NOT NULL,
			wallet TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// --- Users ---

// UpsertUser records a user on first contact. Existing rows are never
// overwritten, so the stored username reflects the first observed value.
func (s *Storage) UpsertUser(chatID int64, username string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO users (chat_id, username, language, joined_at)
		 VALUES (?, ?, 'en', ?)`,
		chatID, nullableString(username), time.Now().Unix(),
	)
	return err
}

// GetUser returns a user by chat ID
func (s *Storage) GetUser(chatID int64) (*User, error) {
	var u User
	var username sql.NullString
	var joinedAt int64

	err := s.db.QueryRow(
		`SELECT chat_id, username, language, joined_at FROM users WHERE chat_id = ?`,
		chatID,
	).Scan(&u.ChatID, &username, &u.Language, &joinedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	u.Username = username.String
	u.JoinedAt = time.Unix(joinedAt, 0)
	return &u, nil
}

// GetUserByUsername returns a user by display username, case-insensitive
func (s *Storage) GetUserByUsername(username string) (*User, error) {
	var u User
	var storedName sql.NullString
	var joinedAt int64

	err := s.db.QueryRow(
		`SELECT chat_id, username, language, joined_at FROM users
		 WHERE username IS NOT NULL AND LOWER(username) = ? LIMIT 1`,
		strings.ToLower(username),
	).Scan(&u.ChatID, &storedName, &u.Language, &joinedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	u.Username = storedName.String
	u.JoinedAt = time.Unix(joinedAt, 0)
	return &u, nil
}

// SetLanguage updates a user's interface language
func (s *Storage) SetLanguage(chatID int64, language string) error {
	result, err := s.db.Exec(
		"UPDATE users SET language = ? WHERE chat_id = ?",
		language, chatID,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListChatIDs returns the chat IDs of every known user
func (s *Storage) ListChatIDs() ([]int64, error) {
	rows, err := s.db.Query("SELECT chat_id FROM users")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CountUsers returns the number of known users
func (s *Storage) CountUsers() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// --- Orders ---

// CreateOrder appends an order to the ledger
func (s *Storage) CreateOrder(username string, starsAmount int64, tonAmount float64, wallet string) (*Order, error) {
	now := time.Now().Unix()
	result, err := s.db.Exec(
		`INSERT INTO orders (username, stars_amount, ton_amount, wallet, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		username, starsAmount, tonAmount, wallet, now,
	)
	if err != nil {
		return nil, err
	}

	id, _ := result.LastInsertId()
	return &Order{
		ID:          id,
		Username:    username,
		StarsAmount: starsAmount,
		TonAmount:   tonAmount,
		Wallet:      wallet,
		CreatedAt:   time.Unix(now, 0),
	}, nil
}

// OrderStats aggregates the order ledger over a window of the last N days.
// days = 0 means all time. The cutoff is always a bound parameter.
func (s *Storage) OrderStats(days int) (*OrderStats, error) {
	var cutoff int64
	if days > 0 {
		cutoff = time.Now().AddDate(0, 0, -days).Unix()
	}

	var stats OrderStats
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(stars_amount), 0), COALESCE(SUM(ton_amount), 0)
		 FROM orders WHERE created_at >= ?`,
		cutoff,
	).Scan(&stats.Count, &stats.TotalStars, &stats.TotalTON)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
