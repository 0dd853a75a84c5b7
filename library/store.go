package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store owns the on-disk JSON book file. All mutation of the collection
// goes through it; every mutation rewrites the whole file. Two processes
// writing the same file race last-writer-wins, which is an accepted
// limitation at this scale.
type Store struct {
	path string
}

// NewStore points a Store at the given book file. The file does not have
// to exist yet; first Load returns an empty collection.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the backing file.
func (s *Store) Path() string { return s.path }

// Load reads the full collection. A missing or empty file is the
// first-run condition and yields an empty slice, not an error. Records
// that decode but break the model invariants (unknown status, rating
// outside 1..5) are corrupt data, not valid books.
func (s *Store) Load() ([]Book, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Book{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read book file: %w", err)
	}
	if len(data) == 0 {
		return []Book{}, nil
	}

	var books []Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, &CorruptDataError{Path: s.path, Err: err}
	}
	for i, b := range books {
		if err := b.Validate(); err != nil {
			return nil, &CorruptDataError{Path: s.path, Err: fmt.Errorf("record %d: %w", i, err)}
		}
	}
	return books, nil
}

// Save replaces the file with the given sequence. It writes to a
// temporary file in the same directory and renames it over the target,
// so an interrupted save leaves the previous file intact.
func (s *Store) Save(books []Book) error {
	if books == nil {
		books = []Book{}
	}
	data, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return fmt.Errorf("encode books: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write book file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close book file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace book file: %w", err)
	}
	return nil
}

// Add validates the record, assigns a fresh id, stamps the added-at date
// when unset, appends and saves. The stored record is returned.
func (s *Store) Add(b Book) (Book, error) {
	if err := b.Validate(); err != nil {
		return Book{}, err
	}

	books, err := s.Load()
	if err != nil {
		return Book{}, err
	}

	b.ID = uuid.NewString()
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	if b.AddedAt.IsZero() {
		b.AddedAt = Today()
	}

	books = append(books, b)
	if err := s.Save(books); err != nil {
		return Book{}, err
	}
	return b, nil
}

// Delete removes the record with the given id and saves. An unknown id
// leaves the collection unchanged and returns nil.
func (s *Store) Delete(id string) error {
	books, err := s.Load()
	if err != nil {
		return err
	}

	kept := books[:0]
	for _, b := range books {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(books) {
		return nil
	}
	return s.Save(kept)
}

// Get fetches a single record by id.
func (s *Store) Get(id string) (Book, error) {
	books, err := s.Load()
	if err != nil {
		return Book{}, err
	}
	for _, b := range books {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, fmt.Errorf("book %s: %w", id, ErrNotFound)
}

// Search filters the collection with a case-insensitive substring match
// on title and author plus an optional status filter. An empty query and
// empty status return every record. Linear scan, insertion order kept.
func (s *Store) Search(query string, status Status) ([]Book, error) {
	books, err := s.Load()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	matched := make([]Book, 0, len(books))
	for _, b := range books {
		if status != "" && b.Status != status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(b.Title), query) &&
			!strings.Contains(strings.ToLower(b.Author), query) {
			continue
		}
		matched = append(matched, b)
	}
	return matched, nil
}
