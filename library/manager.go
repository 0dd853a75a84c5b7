package library

import (
	"fmt"
	"path/filepath"
)

// Default file names inside the data directory.
const (
	BooksFileName = "books.json"
	DBFileName    = "bookshelf.db"
)

// Manager is a thin façade over the Store and the Database, keeping the
// CLI and web code simple.
type Manager struct {
	store *Store
	db    *Database
}

// NewManager opens (or creates) the book file and the SQLite database
// inside dataDir.
func NewManager(dataDir string) (*Manager, error) {
	db, err := NewDatabase(filepath.Join(dataDir, DBFileName))
	if err != nil {
		return nil, err
	}
	return &Manager{
		store: NewStore(filepath.Join(dataDir, BooksFileName)),
		db:    db,
	}, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error { return m.db.Close() }

// Store exposes the book store for callers that only need persistence.
func (m *Manager) Store() *Store { return m.store }

// ------------------ Book helpers ------------------

func (m *Manager) Books() ([]Book, error)          { return m.store.Load() }
func (m *Manager) AddBook(b Book) (Book, error)    { return m.store.Add(b) }
func (m *Manager) GetBook(id string) (Book, error) { return m.store.Get(id) }

// DeleteBook removes the record and any collection memberships it held.
func (m *Manager) DeleteBook(id string) error {
	if err := m.store.Delete(id); err != nil {
		return err
	}
	return m.db.RemoveBookEverywhere(id)
}

func (m *Manager) SearchBooks(query string, status Status) ([]Book, error) {
	return m.store.Search(query, status)
}

// ------------------ User helpers ------------------

func (m *Manager) AddUser(name, password string) (int64, error) { return m.db.AddUser(name, password) }
func (m *Manager) GetUser(id int64) (*User, error)              { return m.db.GetUser(id) }
func (m *Manager) GetAllUsers() ([]*User, error)                { return m.db.GetAllUsers() }
func (m *Manager) Authenticate(name, password string) (*User, error) {
	return m.db.Authenticate(name, password)
}
func (m *Manager) ResetPassword(userID int64, password string) error {
	return m.db.ResetPassword(userID, password)
}

// ------------------ Session helpers ------------------

func (m *Manager) CreateSession(userID int64) (*Session, error) { return m.db.CreateSession(userID) }
func (m *Manager) GetSession(token string) (*Session, error)    { return m.db.GetSession(token) }
func (m *Manager) DeleteSession(token string) error             { return m.db.DeleteSession(token) }

// ------------------ Collection helpers ------------------

func (m *Manager) CreateCollection(name, description string) (int64, error) {
	return m.db.CreateCollection(name, description)
}
func (m *Manager) GetCollection(id int64) (*Collection, error) { return m.db.GetCollection(id) }
func (m *Manager) GetAllCollections() ([]*Collection, error)   { return m.db.GetAllCollections() }
func (m *Manager) DeleteCollection(id int64) error             { return m.db.DeleteCollection(id) }
func (m *Manager) AssignBook(collectionID int64, bookID string) error {
	if _, err := m.store.Get(bookID); err != nil {
		return err
	}
	return m.db.AssignBook(collectionID, bookID)
}
func (m *Manager) UnassignBook(collectionID int64, bookID string) error {
	return m.db.UnassignBook(collectionID, bookID)
}

// CollectionBooks resolves a collection's membership against the book
// store. Ids whose record has been deleted out from under the
// collection are skipped.
func (m *Manager) CollectionBooks(collectionID int64) ([]Book, error) {
	ids, err := m.db.CollectionBookIDs(collectionID)
	if err != nil {
		return nil, err
	}
	books, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	out := make([]Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for terminal lists.
func PrettyBook(b Book) string {
	rating := "-"
	if b.Rating != nil {
		rating = fmt.Sprintf("%d/5", *b.Rating)
	}
	return fmt.Sprintf("%-36s %-30s %-25s %-8s %-5s %s",
		b.ID, truncate(b.Title, 30), truncate(b.Author, 25), b.Status, rating, b.AddedAt.Format("2006-01-02"))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
