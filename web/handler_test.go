package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bookshelf/library"
)

func testHandler(t *testing.T) (http.Handler, *library.Manager) {
	t.Helper()
	mgr, err := library.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return NewHandler(mgr, nil).Routes(), mgr
}

// loginCookie registers a user and returns a live session cookie.
func loginCookie(t *testing.T, mgr *library.Manager) *http.Cookie {
	t.Helper()
	id, err := mgr.AddUser("alice", "hunter2")
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	sess, err := mgr.CreateSession(id)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &http.Cookie{Name: sessionCookieName, Value: sess.Token}
}

func get(t *testing.T, handler http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://example.com"+path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "http://example.com"+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func assertContains(t *testing.T, body string, expected string) {
	t.Helper()
	if !strings.Contains(body, expected) {
		t.Fatalf("expected response to contain %q", expected)
	}
}

func TestAuthGate(t *testing.T) {
	handler, _ := testHandler(t)

	for _, path := range []string{"/", "/books", "/books/new", "/collections", "/stats"} {
		rec := get(t, handler, path, nil)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("%s without session: want redirect, got %d", path, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Fatalf("%s: want redirect to /login, got %q", path, loc)
		}
	}

	// The login page itself stays reachable.
	if rec := get(t, handler, "/login", nil); rec.Code != http.StatusOK {
		t.Fatalf("login page: want 200, got %d", rec.Code)
	}
}

func TestSignupAndLogin(t *testing.T) {
	handler, _ := testHandler(t)

	rec := postForm(t, handler, "/signup", url.Values{
		"username": {"bob"},
		"password": {"secret"},
		"confirm":  {"secret"},
	}, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("signup: want redirect, got %d: %s", rec.Code, rec.Body.String())
	}

	t.Run("mismatched confirm", func(t *testing.T) {
		rec := postForm(t, handler, "/signup", url.Values{
			"username": {"carol"},
			"password": {"one"},
			"confirm":  {"two"},
		}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("want 422, got %d", rec.Code)
		}
		assertContains(t, rec.Body.String(), "Passwords do not match")
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := postForm(t, handler, "/login", url.Values{
			"username": {"bob"},
			"password": {"nope"},
		}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})

	t.Run("correct password", func(t *testing.T) {
		rec := postForm(t, handler, "/login", url.Values{
			"username": {"bob"},
			"password": {"secret"},
		}, nil)
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("want redirect, got %d", rec.Code)
		}
		var sessionCookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == sessionCookieName {
				sessionCookie = c
			}
		}
		if sessionCookie == nil || sessionCookie.Value == "" {
			t.Fatalf("expected session cookie to be set")
		}

		// The cookie opens the dashboard.
		page := get(t, handler, "/", sessionCookie)
		if page.Code != http.StatusOK {
			t.Fatalf("dashboard with session: want 200, got %d", page.Code)
		}
		assertContains(t, page.Body.String(), "bob")
	})
}

func TestLogout(t *testing.T) {
	handler, mgr := testHandler(t)
	cookie := loginCookie(t, mgr)

	rec := postForm(t, handler, "/logout", url.Values{}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout: want redirect, got %d", rec.Code)
	}

	// The old session stops working.
	if rec := get(t, handler, "/", cookie); rec.Code != http.StatusSeeOther {
		t.Fatalf("session should be gone after logout, got %d", rec.Code)
	}
}

func TestAddAndDeleteBook(t *testing.T) {
	handler, mgr := testHandler(t)
	cookie := loginCookie(t, mgr)

	rec := postForm(t, handler, "/books", url.Values{
		"title":  {"Dune"},
		"author": {"Frank Herbert"},
		"isbn":   {"9780441172719"},
		"rating": {"5"},
		"status": {"Read"},
	}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("add: want redirect, got %d: %s", rec.Code, rec.Body.String())
	}

	list := get(t, handler, "/books", cookie)
	assertContains(t, list.Body.String(), "Dune")
	assertContains(t, list.Body.String(), "5 / 5")

	books, err := mgr.Books()
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("want 1 record, got %d", len(books))
	}

	del := postForm(t, handler, "/books/delete", url.Values{"id": {books[0].ID}}, cookie)
	if del.Code != http.StatusSeeOther {
		t.Fatalf("delete: want redirect, got %d", del.Code)
	}

	list = get(t, handler, "/books", cookie)
	assertContains(t, list.Body.String(), "No books found")
}

func TestAddBookValidation(t *testing.T) {
	handler, mgr := testHandler(t)
	cookie := loginCookie(t, mgr)

	rec := postForm(t, handler, "/books", url.Values{
		"title":  {""},
		"author": {"X"},
		"status": {"Unread"},
	}, cookie)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422, got %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), "invalid title")

	rec = postForm(t, handler, "/books", url.Values{
		"title":  {"T"},
		"author": {"X"},
		"rating": {"6"},
		"status": {"Unread"},
	}, cookie)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("rating 6: want 422, got %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), "invalid rating")
}

func TestBooksFilter(t *testing.T) {
	handler, mgr := testHandler(t)
	cookie := loginCookie(t, mgr)

	mgr.AddBook(library.Book{Title: "Dune", Author: "Frank Herbert", Status: library.StatusRead})
	mgr.AddBook(library.Book{Title: "Piranesi", Author: "Susanna Clarke", Status: library.StatusReading})

	rec := get(t, handler, "/books?status=Reading", cookie)
	body := rec.Body.String()
	assertContains(t, body, "Piranesi")
	if strings.Contains(body, "<td>Dune</td>") {
		t.Fatalf("status filter leaked a Read book")
	}

	rec = get(t, handler, "/books?q=herbert", cookie)
	assertContains(t, rec.Body.String(), "Dune")
}

func TestCollectionsFlow(t *testing.T) {
	handler, mgr := testHandler(t)
	cookie := loginCookie(t, mgr)

	book, err := mgr.AddBook(library.Book{Title: "Dune", Author: "Frank Herbert", Status: library.StatusRead})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}

	rec := postForm(t, handler, "/collections", url.Values{
		"name":        {"Sci-Fi"},
		"description": {"Space operas"},
	}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create collection: want redirect, got %d", rec.Code)
	}

	collections, err := mgr.GetAllCollections()
	if err != nil || len(collections) != 1 {
		t.Fatalf("want 1 collection, got %v (%v)", collections, err)
	}

	rec = postForm(t, handler, "/collections/assign", url.Values{
		"collection_id": {"1"},
		"book_id":       {book.ID},
	}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("assign: want redirect, got %d", rec.Code)
	}

	page := get(t, handler, "/collections", cookie)
	assertContains(t, page.Body.String(), "Sci-Fi")
	assertContains(t, page.Body.String(), "Dune")
}

func TestAssignStaleBookRedirects(t *testing.T) {
	handler, mgr := testHandler(t)
	cookie := loginCookie(t, mgr)

	book, err := mgr.AddBook(library.Book{Title: "Dune", Author: "Frank Herbert", Status: library.StatusRead})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}
	if _, err := mgr.CreateCollection("Sci-Fi", ""); err != nil {
		t.Fatalf("create collection: %v", err)
	}

	// The book vanishes between rendering the page and submitting the form.
	if err := mgr.DeleteBook(book.ID); err != nil {
		t.Fatalf("delete book: %v", err)
	}

	rec := postForm(t, handler, "/collections/assign", url.Values{
		"collection_id": {"1"},
		"book_id":       {book.ID},
	}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("stale assign: want redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/collections" {
		t.Fatalf("want redirect to /collections, got %q", loc)
	}
}

func TestStatsPage(t *testing.T) {
	handler, mgr := testHandler(t)
	cookie := loginCookie(t, mgr)

	rating := 4
	mgr.AddBook(library.Book{Title: "Dune", Author: "Frank Herbert", Status: library.StatusRead, Rating: &rating})

	rec := get(t, handler, "/stats", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: want 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "Book Status Distribution")
	assertContains(t, body, "Rating Distribution")
	assertContains(t, body, "Monthly Book Additions")
}
