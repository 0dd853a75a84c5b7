package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// SessionTTL caps how long a "remember me" session stays valid.
const SessionTTL = 24 * time.Hour

// Database provides high-level helpers around a SQLite connection. It
// holds accounts, sessions and collections; book records themselves live
// in the JSON Store.
type Database struct {
	db *sql.DB

	addUserStmt       *sql.Stmt
	addCollectionStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies
// schema migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addUserStmt != nil {
		d.addUserStmt.Close()
	}
	if d.addCollectionStmt != nil {
		d.addCollectionStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS sessions (
            token TEXT PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id),
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            expires_at DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS collections (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            description TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS collection_books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
            book_id TEXT NOT NULL,
            added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(collection_id, book_id)
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addUserStmt, err = d.db.Prepare(`INSERT INTO users(name,password_hash) VALUES(?,?)`); err != nil {
		return err
	}
	if d.addCollectionStmt, err = d.db.Prepare(`INSERT INTO collections(name,description) VALUES(?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Users and authentication
// ---------------------------------------------------------------------------

// AddUser registers an account with a bcrypt-hashed password.
func (d *Database) AddUser(name, password string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("user name cannot be empty")
	}
	if password == "" {
		return 0, fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	res, err := d.addUserStmt.Exec(name, string(hash))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("user %q already exists", name)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetUser fetches a single user by id.
func (d *Database) GetUser(id int64) (*User, error) {
	var u User
	err := d.db.QueryRow(`SELECT id,name,password_hash FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.Name, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByName fetches a single user by account name.
func (d *Database) GetUserByName(name string) (*User, error) {
	var u User
	err := d.db.QueryRow(`SELECT id,name,password_hash FROM users WHERE name=?`, name).
		Scan(&u.ID, &u.Name, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetAllUsers returns all registered users ordered by id.
func (d *Database) GetAllUsers() ([]*User, error) {
	rows, err := d.db.Query(`SELECT id,name,password_hash FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.PasswordHash); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Authenticate verifies the password for the named account and returns
// the user on success.
func (d *Database) Authenticate(name, password string) (*User, error) {
	u, err := d.GetUserByName(name)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid password for %q", name)
	}
	return u, nil
}

// ResetPassword replaces the account's password hash.
func (d *Database) ResetPassword(userID int64, password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := d.db.Exec(`UPDATE users SET password_hash=? WHERE id=?`, string(hash), userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// CreateSession issues an opaque session token for the user, valid for
// SessionTTL. Expired sessions for the user are pruned on the way in.
func (d *Database) CreateSession(userID int64) (*Session, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id=?)`, userID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	if _, err := tx.Exec(`DELETE FROM sessions WHERE user_id=? AND expires_at<=?`, userID, time.Now().UTC()); err != nil {
		return nil, err
	}

	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(SessionTTL),
	}
	if _, err := tx.Exec(`INSERT INTO sessions(token,user_id,expires_at) VALUES(?,?,?)`,
		sess.Token, sess.UserID, sess.ExpiresAt); err != nil {
		return nil, err
	}
	return sess, tx.Commit()
}

// GetSession resolves a token to a live session. Expired tokens are
// deleted and reported as ErrNotFound.
func (d *Database) GetSession(token string) (*Session, error) {
	var sess Session
	err := d.db.QueryRow(`SELECT token,user_id,expires_at FROM sessions WHERE token=?`, token).
		Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		_, _ = d.db.Exec(`DELETE FROM sessions WHERE token=?`, token)
		return nil, fmt.Errorf("session expired: %w", ErrNotFound)
	}
	return &sess, nil
}

// DeleteSession logs the session out. Unknown tokens are a no-op.
func (d *Database) DeleteSession(token string) error {
	_, err := d.db.Exec(`DELETE FROM sessions WHERE token=?`, token)
	return err
}

// ---------------------------------------------------------------------------
// Collections
// ---------------------------------------------------------------------------

// CreateCollection adds a named collection.
func (d *Database) CreateCollection(name, description string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("collection name cannot be empty")
	}
	res, err := d.addCollectionStmt.Exec(name, description)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("collection %q already exists", name)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetCollection fetches a single collection by id.
func (d *Database) GetCollection(id int64) (*Collection, error) {
	var c Collection
	err := d.db.QueryRow(`SELECT id,name,description FROM collections WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetAllCollections returns every collection ordered by name.
func (d *Database) GetAllCollections() ([]*Collection, error) {
	rows, err := d.db.Query(`SELECT id,name,description FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []*Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		collections = append(collections, &c)
	}
	return collections, rows.Err()
}

// DeleteCollection removes a collection and its memberships.
func (d *Database) DeleteCollection(id int64) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM collection_books WHERE collection_id=?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM collections WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("collection %d: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// AssignBook adds a book id to a collection. Assigning the same book
// twice is a no-op.
func (d *Database) AssignBook(collectionID int64, bookID string) error {
	var exists bool
	if err := d.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM collections WHERE id=?)`, collectionID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("collection %d: %w", collectionID, ErrNotFound)
	}

	_, err := d.db.Exec(`INSERT OR IGNORE INTO collection_books(collection_id,book_id) VALUES(?,?)`,
		collectionID, bookID)
	return err
}

// UnassignBook removes a book id from a collection.
func (d *Database) UnassignBook(collectionID int64, bookID string) error {
	res, err := d.db.Exec(`DELETE FROM collection_books WHERE collection_id=? AND book_id=?`,
		collectionID, bookID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("book %s in collection %d: %w", bookID, collectionID, ErrNotFound)
	}
	return nil
}

// CollectionBookIDs returns the book ids in a collection in the order
// they were assigned.
func (d *Database) CollectionBookIDs(collectionID int64) ([]string, error) {
	rows, err := d.db.Query(`SELECT book_id FROM collection_books WHERE collection_id=? ORDER BY added_at, id`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RemoveBookEverywhere drops a deleted book's memberships so collections
// don't accumulate dangling ids.
func (d *Database) RemoveBookEverywhere(bookID string) error {
	_, err := d.db.Exec(`DELETE FROM collection_books WHERE book_id=?`, bookID)
	return err
}
