// Package sqlstore persists users and tweets through database/sql. SQLite
// (modernc.org/sqlite) and MySQL (go-sql-driver/mysql) are supported; both
// accept the same "?" placeholders, only the schema differs.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"socialfeed/internal/domain"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS users (
		  id INTEGER PRIMARY KEY AUTOINCREMENT,
		  username TEXT NOT NULL UNIQUE,
		  password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tweets (
		  id INTEGER PRIMARY KEY AUTOINCREMENT,
		  body TEXT NOT NULL,
		  likes INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
		  parent_id INTEGER,
		  user_id INTEGER NOT NULL,
		  created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tweets_parent ON tweets(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tweets_user ON tweets(user_id)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS users (
		  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		  username VARCHAR(255) NOT NULL,
		  password_hash VARCHAR(255) NOT NULL,
		  UNIQUE KEY uq_users_username (username)
		)`,
		`CREATE TABLE IF NOT EXISTS tweets (
		  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		  body TEXT NOT NULL,
		  likes INT NOT NULL DEFAULT 0,
		  parent_id BIGINT NULL,
		  user_id BIGINT NOT NULL,
		  created_at BIGINT NOT NULL,
		  INDEX idx_tweets_parent (parent_id),
		  INDEX idx_tweets_user (user_id)
		)`,
	},
}

// Store implements usecases.TweetRepository and usecases.UserRepository.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}

	if driver == DriverSQLite {
		// One connection: ":memory:" databases are per connection and
		// SQLite serializes writers anyway.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlstore: pragma: %w", err)
		}
	}

	s, err := New(ctx, db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool and migrates it.
func New(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts, ok := schemas[s.driver]
	if !ok {
		return fmt.Errorf("sqlstore: unsupported driver %q", s.driver)
	}
	// MySQL rejects multi-statement Exec without multiStatements=true.
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

const tweetColumns = `id, body, likes, parent_id, user_id, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTweet(row scanner) (*domain.Tweet, error) {
	var (
		t       domain.Tweet
		parent  sql.NullInt64
		created int64
	)
	if err := row.Scan(&t.ID, &t.Body, &t.Likes, &parent, &t.UserID, &created); err != nil {
		return nil, err
	}
	if parent.Valid {
		p := parent.Int64
		t.ParentID = &p
	}
	t.CreatedAt = time.Unix(0, created).UTC()
	return &t, nil
}

func (s *Store) queryTweets(ctx context.Context, query string, args ...any) ([]*domain.Tweet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Tweet
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTweet(ctx context.Context, tweet *domain.Tweet) (*domain.Tweet, error) {
	var parent sql.NullInt64
	if tweet.ParentID != nil {
		parent = sql.NullInt64{Int64: *tweet.ParentID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tweets(body, likes, parent_id, user_id, created_at) VALUES(?,?,?,?,?)`,
		tweet.Body, tweet.Likes, parent, tweet.UserID, tweet.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert tweet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert tweet: %w", err)
	}

	created := *tweet
	created.ID = id
	created.Author = nil
	created.CreatedAt = time.Unix(0, tweet.CreatedAt.UnixNano()).UTC()
	return &created, nil
}

func (s *Store) GetTweetByID(ctx context.Context, id int64) (*domain.Tweet, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tweetColumns+` FROM tweets WHERE id = ?`, id)
	t, err := scanTweet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tweet %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) GetAllTweets(ctx context.Context) ([]*domain.Tweet, error) {
	return s.queryTweets(ctx, `SELECT `+tweetColumns+` FROM tweets ORDER BY created_at DESC, id DESC`)
}

func (s *Store) GetTweetsByAuthor(ctx context.Context, authorID int64) ([]*domain.Tweet, error) {
	return s.queryTweets(ctx, `SELECT `+tweetColumns+` FROM tweets WHERE user_id = ? ORDER BY id`, authorID)
}

func (s *Store) UpdateTweetBody(ctx context.Context, id int64, body string) (*domain.Tweet, error) {
	// MySQL reports zero affected rows when the body is unchanged, so
	// existence is decided by the read that follows.
	if _, err := s.db.ExecContext(ctx, `UPDATE tweets SET body = ? WHERE id = ?`, body, id); err != nil {
		return nil, fmt.Errorf("update tweet %d: %w", id, err)
	}
	return s.GetTweetByID(ctx, id)
}

func (s *Store) IncrementLikes(ctx context.Context, id int64) (bool, error) {
	return s.execAffected(ctx, `UPDATE tweets SET likes = likes + 1 WHERE id = ?`, id)
}

func (s *Store) DecrementLikes(ctx context.Context, id int64) (bool, error) {
	return s.execAffected(ctx, `UPDATE tweets SET likes = likes - 1 WHERE id = ? AND likes > 0`, id)
}

func (s *Store) DeleteTweet(ctx context.Context, id int64) (bool, error) {
	return s.execAffected(ctx, `DELETE FROM tweets WHERE id = ?`, id)
}

// GetDirectReplies returns replies oldest first.
func (s *Store) GetDirectReplies(ctx context.Context, parentID int64) ([]*domain.Tweet, error) {
	return s.queryTweets(ctx, `SELECT `+tweetColumns+` FROM tweets WHERE parent_id = ? ORDER BY id`, parentID)
}

func (s *Store) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(username, password_hash) VALUES(?,?)`, user.Username, user.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict("sqlstore.create_user", "username '%s' is already taken", user.Username)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	created.ID = id
	return &created, nil
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *Store) GetAllUsers(ctx context.Context) ([]*domain.User, error) {
	return s.queryUsers(ctx, `SELECT id, username, password_hash FROM users ORDER BY id`)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	users, err := s.queryUsers(ctx, `SELECT id, username, password_hash FROM users WHERE `+where, arg)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getUser(ctx, `id = ?`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getUser(ctx, `username = ?`, username)
}

func (s *Store) DeleteUserByID(ctx context.Context, id int64) (*domain.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var u domain.User
	err = tx.QueryRowContext(ctx, `SELECT id, username, password_hash FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete user %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete user %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
