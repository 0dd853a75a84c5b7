package library

import (
	"encoding/json"
	"strings"
	"time"
)

// Status tracks where a book sits in the owner's reading life.
type Status string

const (
	StatusRead    Status = "Read"
	StatusUnread  Status = "Unread"
	StatusReading Status = "Reading"
)

// Statuses returns the enum values in display order.
func Statuses() []Status {
	return []Status{StatusRead, StatusUnread, StatusReading}
}

// Valid reports whether s is one of the three enumerated values.
func (s Status) Valid() bool {
	switch s {
	case StatusRead, StatusUnread, StatusReading:
		return true
	}
	return false
}

// Date is a calendar day persisted as an ISO-8601 date string.
type Date struct {
	time.Time
}

// Today returns the current calendar day in UTC.
func Today() Date {
	now := time.Now().UTC()
	return Date{time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)}
}

// DateOf builds a Date from its parts, handy in tests and seed tooling.
func DateOf(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// YearMonth renders the date as "YYYY-MM" for monthly grouping.
func (d Date) YearMonth() string { return d.Format("2006-01") }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

// UnmarshalJSON accepts both plain dates and full RFC 3339 timestamps so
// files written by older tooling keep loading.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
	}
	d.Time = t
	return nil
}

// Book is one record in the collection. Records are created through
// Store.Add and never updated in place.
type Book struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn,omitempty"`
	Rating   *int   `json:"rating"`
	Status   Status `json:"status"`
	AddedAt  Date   `json:"added_at"`
	CoverURL string `json:"cover_url,omitempty"`
}

// Validate enforces the record invariants at the boundary: required
// title/author, status enum membership, rating nil or within 1..5.
func (b Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(b.Author) == "" {
		return &ValidationError{Field: "author", Reason: "must not be empty"}
	}
	if !b.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "must be Read, Unread or Reading"}
	}
	if b.Rating != nil && (*b.Rating < 1 || *b.Rating > 5) {
		return &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	return nil
}

// User is a registered account. The password hash never serializes.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
}

// Session is a logged-in browser session.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// Collection is a named group of books.
type Collection struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
