package storage

import (
	"database/sql"
	"errors"
	"time"

	"expensebook/internal/dateutil"
	"expensebook/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist or is not owned by
// the requesting user. Callers cannot distinguish the two cases.
var ErrNotFound = errors.New("not found")

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			reset_token TEXT,
			reset_expires_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			amount INTEGER NOT NULL,
			category TEXT NOT NULL,
			day TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_day ON expenses(user_id, day)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			last_activity DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateExpense inserts a new expense owned by userID.
func (db *DB) CreateExpense(userID int64, name string, amount int64, category string, day time.Time) (*models.Expense, error) {
	result, err := db.conn.Exec(
		"INSERT INTO expenses (name, amount, category, day, user_id) VALUES (?, ?, ?, ?, ?)",
		name, amount, category, dateutil.FormatDay(day), userID,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetExpense(userID, id)
}

// GetExpense retrieves a single expense by ID, scoped to its owner.
func (db *DB) GetExpense(userID, id int64) (*models.Expense, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, amount, category, day, user_id FROM expenses WHERE id = ? AND user_id = ?",
		id, userID,
	)
	return scanExpense(row)
}

// UpdateExpense updates an expense in place, scoped to its owner.
// Returns ErrNotFound when the expense does not exist or belongs to
// another user.
func (db *DB) UpdateExpense(userID int64, e *models.Expense) error {
	result, err := db.conn.Exec(
		"UPDATE expenses SET name = ?, amount = ?, category = ?, day = ? WHERE id = ? AND user_id = ?",
		e.Name, e.Amount, e.Category, dateutil.FormatDay(e.Day), e.ID, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// DeleteExpense removes an expense, scoped to its owner. Returns ErrNotFound
// when nothing was deleted.
func (db *DB) DeleteExpense(userID, id int64) error {
	result, err := db.conn.Exec(
		"DELETE FROM expenses WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ListExpensesByDay retrieves a user's expenses for a single calendar day,
// in insertion order.
func (db *DB) ListExpensesByDay(userID int64, day time.Time) ([]models.Expense, error) {
	rows, err := db.conn.Query(
		"SELECT id, name, amount, category, day, user_id FROM expenses WHERE user_id = ? AND day = ? ORDER BY id ASC",
		userID, dateutil.FormatDay(day),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		var dayStr string
		if err := rows.Scan(&e.ID, &e.Name, &e.Amount, &e.Category, &dayStr, &e.UserID); err != nil {
			return nil, err
		}
		if e.Day, err = dateutil.ParseDay(dayStr); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}

	return expenses, rows.Err()
}

func scanExpense(row *sql.Row) (*models.Expense, error) {
	var e models.Expense
	var dayStr string
	if err := row.Scan(&e.ID, &e.Name, &e.Amount, &e.Category, &dayStr, &e.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	day, err := dateutil.ParseDay(dayStr)
	if err != nil {
		return nil, err
	}
	e.Day = day
	return &e, nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateUser creates a new user with the given username, email and password hash.
func (db *DB) CreateUser(username, email, passwordHash string) (*models.User, error) {
	result, err := db.conn.Exec(
		"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
		username, email, passwordHash,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(id)
}

const userColumns = "id, username, email, password_hash, reset_token, reset_expires_at, created_at"

func (db *DB) getUser(where string, args ...any) (*models.User, error) {
	row := db.conn.QueryRow("SELECT "+userColumns+" FROM users WHERE "+where, args...)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ResetToken, &u.ResetExpiresAt, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id int64) (*models.User, error) {
	return db.getUser("id = ?", id)
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	return db.getUser("username = ?", username)
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	return db.getUser("email = ?", email)
}

// SetResetToken stores a password-reset token with its expiry on a user.
func (db *DB) SetResetToken(userID int64, token string, expiresAt time.Time) error {
	result, err := db.conn.Exec(
		"UPDATE users SET reset_token = ?, reset_expires_at = ? WHERE id = ?",
		token, expiresAt, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// GetUserByResetToken retrieves the user holding an unexpired reset token.
func (db *DB) GetUserByResetToken(token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return db.getUser("reset_token = ? AND reset_expires_at > ?", token, time.Now())
}

// UpdatePassword replaces a user's password hash and invalidates any
// outstanding reset token.
func (db *DB) UpdatePassword(userID int64, passwordHash string) error {
	result, err := db.conn.Exec(
		"UPDATE users SET password_hash = ?, reset_token = NULL, reset_expires_at = NULL WHERE id = ?",
		passwordHash, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(token string, userID int64, expiresAt time.Time) error {
	now := time.Now()
	_, err := db.conn.Exec(
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt, now,
	)
	return err
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token is valid and returns the associated user.
func (db *DB) ValidateSession(token string) (*models.User, error) {
	info, err := db.ValidateSessionWithInfo(token)
	if err != nil {
		return nil, err
	}
	return info.User, nil
}

// ValidateSessionWithInfo checks if a session token is valid and returns session details.
func (db *DB) ValidateSessionWithInfo(token string) (*SessionInfo, error) {
	row := db.conn.QueryRow(`
		SELECT u.id, u.username, u.email, u.password_hash, u.reset_token, u.reset_expires_at, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > CURRENT_TIMESTAMP
	`, token)

	var u models.User
	var lastActivity, expiresAt time.Time
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ResetToken, &u.ResetExpiresAt, &u.CreatedAt, &lastActivity, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &SessionInfo{
		User:         &u,
		LastActivity: lastActivity,
		ExpiresAt:    expiresAt,
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(token string, newExpiresAt time.Time) error {
	now := time.Now()
	_, err := db.conn.Exec(
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		now, newExpiresAt, token,
	)
	return err
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions() error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP")
	return err
}
