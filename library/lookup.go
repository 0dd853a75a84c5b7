package library

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultLookupBaseURL is the public Open Library endpoint.
const DefaultLookupBaseURL = "https://openlibrary.org"

// BookDetails is the metadata Open Library knows about an ISBN, used to
// prefill the add form.
type BookDetails struct {
	Title       string
	Author      string
	CoverURL    string
	PublishDate string
	Publisher   string
}

// Lookup fetches book metadata by ISBN from an Open Library compatible
// endpoint.
type Lookup struct {
	BaseURL string
	Client  *http.Client
}

// NewLookup builds a Lookup against baseURL. An empty baseURL selects
// the public Open Library service.
func NewLookup(baseURL string) *Lookup {
	if baseURL == "" {
		baseURL = DefaultLookupBaseURL
	}
	return &Lookup{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// openLibraryBook mirrors the shape of the jscmd=data response.
type openLibraryBook struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Cover struct {
		Medium string `json:"medium"`
	} `json:"cover"`
	PublishDate string `json:"publish_date"`
	Publishers  []struct {
		Name string `json:"name"`
	} `json:"publishers"`
}

// ByISBN fetches details for the given ISBN. An ISBN the service does
// not know yields ErrNotFound.
func (l *Lookup) ByISBN(ctx context.Context, isbn string) (*BookDetails, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("isbn cannot be empty")
	}

	key := "ISBN:" + isbn
	u := fmt.Sprintf("%s/api/books?bibkeys=%s&format=json&jscmd=data", l.BaseURL, url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup isbn %s: %w", isbn, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup isbn %s: unexpected status %s", isbn, resp.Status)
	}

	var payload map[string]openLibraryBook
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("lookup isbn %s: decode response: %w", isbn, err)
	}

	entry, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("isbn %s: %w", isbn, ErrNotFound)
	}

	details := &BookDetails{
		Title:       entry.Title,
		CoverURL:    entry.Cover.Medium,
		PublishDate: entry.PublishDate,
	}
	names := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	details.Author = strings.Join(names, ", ")
	if len(entry.Publishers) > 0 {
		details.Publisher = entry.Publishers[0].Name
	}
	return details, nil
}
