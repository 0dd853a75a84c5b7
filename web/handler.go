package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"bookshelf/library"
)

//go:embed templates/*.html
var templatesFS embed.FS

// sessionCookieName carries the opaque session token.
const sessionCookieName = "bookshelf_session"

type contextKey string

const userContextKey contextKey = "user"

// Handler serves the bookshelf web UI on top of the Manager contract.
type Handler struct {
	mgr    *library.Manager
	lookup *library.Lookup
	tmpl   *template.Template
}

// NewHandler builds the web handler. lookup may be nil to disable ISBN
// prefill.
func NewHandler(mgr *library.Manager, lookup *library.Lookup) *Handler {
	funcs := template.FuncMap{
		"rating": func(b library.Book) string {
			if b.Rating == nil {
				return "—"
			}
			return fmt.Sprintf("%d / 5", *b.Rating)
		},
	}
	return &Handler{
		mgr:    mgr,
		lookup: lookup,
		tmpl:   template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")),
	}
}

// Routes wires up the URL space. Everything except the auth pages sits
// behind the session check.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /login", h.loginForm)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("GET /signup", h.signupForm)
	mux.HandleFunc("POST /signup", h.signup)
	mux.HandleFunc("POST /logout", h.logout)

	mux.Handle("GET /{$}", h.requireAuth(h.dashboard))
	mux.Handle("GET /books", h.requireAuth(h.listBooks))
	mux.Handle("GET /books/new", h.requireAuth(h.newBookForm))
	mux.Handle("POST /books", h.requireAuth(h.addBook))
	mux.Handle("POST /books/delete", h.requireAuth(h.deleteBook))
	mux.Handle("GET /collections", h.requireAuth(h.listCollections))
	mux.Handle("POST /collections", h.requireAuth(h.createCollection))
	mux.Handle("POST /collections/assign", h.requireAuth(h.assignBook))
	mux.Handle("POST /collections/delete", h.requireAuth(h.deleteCollection))
	mux.Handle("GET /stats", h.requireAuth(h.stats))

	return mux
}

// requireAuth resolves the session cookie to a user and redirects to the
// login page when there is none.
func (h *Handler) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		sess, err := h.mgr.GetSession(cookie.Value)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		user, err := h.mgr.GetUser(sess.UserID)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	})
}

func currentUser(r *http.Request) *library.User {
	user, _ := r.Context().Value(userContextKey).(*library.User)
	return user
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("render %s: %v", name, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	log.Printf("web: %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// ------------------ Auth pages ------------------

type authPage struct {
	Error string
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "login.html", authPage{})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	user, err := h.mgr.Authenticate(name, password)
	if err != nil {
		h.render(w, http.StatusUnauthorized, "login.html", authPage{Error: "Invalid username or password."})
		return
	}

	sess, err := h.mgr.CreateSession(user.ID)
	if err != nil {
		h.serverError(w, err)
		return
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if r.FormValue("remember") != "" {
		cookie.Expires = sess.ExpiresAt
	}
	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) signupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "signup.html", authPage{})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	confirm := r.FormValue("confirm")

	if password != confirm {
		h.render(w, http.StatusUnprocessableEntity, "signup.html", authPage{Error: "Passwords do not match."})
		return
	}
	if _, err := h.mgr.AddUser(name, password); err != nil {
		h.render(w, http.StatusUnprocessableEntity, "signup.html", authPage{Error: err.Error()})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := h.mgr.DeleteSession(cookie.Value); err != nil {
			log.Printf("delete session: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ------------------ Dashboard ------------------

type dashboardPage struct {
	UserName    string
	Total       int
	ReadCount   int
	Collections int
	Recent      []library.Book
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	books, err := h.mgr.Books()
	if err != nil {
		h.serverError(w, err)
		return
	}
	collections, err := h.mgr.GetAllCollections()
	if err != nil {
		h.serverError(w, err)
		return
	}

	h.render(w, http.StatusOK, "dashboard.html", dashboardPage{
		UserName:    currentUser(r).Name,
		Total:       len(books),
		ReadCount:   library.ReadCount(books),
		Collections: len(collections),
		Recent:      library.RecentAdditions(books, 5),
	})
}

// ------------------ Books ------------------

type booksPage struct {
	Books    []library.Book
	Query    string
	Status   string
	Statuses []library.Status
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	status := library.Status(r.URL.Query().Get("status"))
	if !status.Valid() {
		status = ""
	}

	books, err := h.mgr.SearchBooks(query, status)
	if err != nil {
		h.serverError(w, err)
		return
	}

	h.render(w, http.StatusOK, "books.html", booksPage{
		Books:    books,
		Query:    query,
		Status:   string(status),
		Statuses: library.Statuses(),
	})
}

type bookFormPage struct {
	Title    string
	Author   string
	ISBN     string
	CoverURL string
	Statuses []library.Status
	Error    string
}

func (h *Handler) newBookForm(w http.ResponseWriter, r *http.Request) {
	page := bookFormPage{Statuses: library.Statuses()}

	// An ISBN in the query string prefills the form from Open Library.
	// Lookup failures degrade to an empty form.
	if isbn := strings.TrimSpace(r.URL.Query().Get("isbn")); isbn != "" && h.lookup != nil {
		page.ISBN = isbn
		details, err := h.lookup.ByISBN(r.Context(), isbn)
		if err != nil {
			log.Printf("isbn lookup %s: %v", isbn, err)
		} else {
			page.Title = details.Title
			page.Author = details.Author
			page.CoverURL = details.CoverURL
		}
	}

	h.render(w, http.StatusOK, "book_form.html", page)
}

func (h *Handler) addBook(w http.ResponseWriter, r *http.Request) {
	book := library.Book{
		Title:    r.FormValue("title"),
		Author:   r.FormValue("author"),
		ISBN:     strings.TrimSpace(r.FormValue("isbn")),
		Status:   library.Status(r.FormValue("status")),
		CoverURL: strings.TrimSpace(r.FormValue("cover_url")),
	}

	formErr := func(msg string) {
		h.render(w, http.StatusUnprocessableEntity, "book_form.html", bookFormPage{
			Title:    book.Title,
			Author:   book.Author,
			ISBN:     book.ISBN,
			CoverURL: book.CoverURL,
			Statuses: library.Statuses(),
			Error:    msg,
		})
	}

	if raw := strings.TrimSpace(r.FormValue("rating")); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			formErr("Rating must be a number between 1 and 5.")
			return
		}
		book.Rating = &rating
	}

	if _, err := h.mgr.AddBook(book); err != nil {
		var verr *library.ValidationError
		if errors.As(err, &verr) {
			formErr(verr.Error())
			return
		}
		h.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.DeleteBook(r.FormValue("id")); err != nil {
		h.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

// ------------------ Collections ------------------

type collectionView struct {
	Collection library.Collection
	Books      []library.Book
}

type collectionsPage struct {
	Collections []collectionView
	Books       []library.Book
	Error       string
}

func (h *Handler) collectionsData() (collectionsPage, error) {
	var page collectionsPage

	collections, err := h.mgr.GetAllCollections()
	if err != nil {
		return page, err
	}
	for _, c := range collections {
		books, err := h.mgr.CollectionBooks(c.ID)
		if err != nil {
			return page, err
		}
		page.Collections = append(page.Collections, collectionView{Collection: *c, Books: books})
	}

	page.Books, err = h.mgr.Books()
	return page, err
}

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	page, err := h.collectionsData()
	if err != nil {
		h.serverError(w, err)
		return
	}
	h.render(w, http.StatusOK, "collections.html", page)
}

func (h *Handler) createCollection(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	description := r.FormValue("description")

	if _, err := h.mgr.CreateCollection(name, description); err != nil {
		page, derr := h.collectionsData()
		if derr != nil {
			h.serverError(w, derr)
			return
		}
		page.Error = err.Error()
		h.render(w, http.StatusUnprocessableEntity, "collections.html", page)
		return
	}
	http.Redirect(w, r, "/collections", http.StatusSeeOther)
}

func (h *Handler) assignBook(w http.ResponseWriter, r *http.Request) {
	collectionID, err := strconv.ParseInt(r.FormValue("collection_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid collection id", http.StatusBadRequest)
		return
	}
	// The book or collection may have been deleted since the page was
	// rendered; treat that as a stale form, not a server fault.
	if err := h.mgr.AssignBook(collectionID, r.FormValue("book_id")); err != nil && !errors.Is(err, library.ErrNotFound) {
		h.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/collections", http.StatusSeeOther)
}

func (h *Handler) deleteCollection(w http.ResponseWriter, r *http.Request) {
	collectionID, err := strconv.ParseInt(r.FormValue("collection_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid collection id", http.StatusBadRequest)
		return
	}
	if err := h.mgr.DeleteCollection(collectionID); err != nil && !errors.Is(err, library.ErrNotFound) {
		h.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/collections", http.StatusSeeOther)
}

// ------------------ Statistics ------------------

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	books, err := h.mgr.Books()
	if err != nil {
		h.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderStatsPage(w, books); err != nil {
		log.Printf("render stats: %v", err)
	}
}
