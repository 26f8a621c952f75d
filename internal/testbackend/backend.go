// Package testbackend is an in-memory implementation of the library GraphQL
// backend, used by tests and by cmd/devbackend.
package testbackend

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"github.com/rpggio/libflow/internal/domain/library"
)

var (
	errBookNotFound    = errors.New("book not found")
	errBorrowNotFound  = errors.New("borrow not found")
	errNotAvailable    = errors.New("book not available")
	errAlreadyReturned = errors.New("book already returned")
)

type memberRow struct {
	id       int
	name     string
	email    string
	joinedAt time.Time
}

type borrowRow struct {
	id         int
	memberID   int
	bookID     int
	borrowDate time.Time
	returnDate *time.Time
	status     library.BorrowStatus
}

// Backend holds the library data and serves it over GraphQL.
type Backend struct {
	mu       sync.Mutex
	books    map[int]library.Book
	members  map[int]memberRow
	borrows  map[int]borrowRow
	nextID   int
	calls    map[string]int
	failures map[string]string
	down     bool
	auth     []string
	schema   graphql.Schema
	now      func() time.Time
}

// New creates an empty backend.
func New() *Backend {
	b := &Backend{
		books:    make(map[int]library.Book),
		members:  make(map[int]memberRow),
		borrows:  make(map[int]borrowRow),
		calls:    make(map[string]int),
		failures: make(map[string]string),
		now:      time.Now,
	}
	schema, err := b.buildSchema()
	if err != nil {
		panic("testbackend: invalid schema: " + err.Error())
	}
	b.schema = schema
	return b
}

// Start serves b on an httptest server that is closed with the test.
func Start(t testing.TB, b *Backend) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// Handler returns the HTTP handler for the GraphQL endpoint.
func (b *Backend) Handler() http.Handler {
	gql := handler.New(&handler.Config{
		Schema:   &b.schema,
		Pretty:   true,
		GraphiQL: true,
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		down := b.down
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		b.mu.Unlock()
		if down {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		gql.ServeHTTP(w, r)
	})
}

// AddBook stores book, assigning an ID when it has none, and returns it.
func (b *Backend) AddBook(book library.Book) library.Book {
	b.mu.Lock()
	defer b.mu.Unlock()
	if book.ID == 0 {
		book.ID = b.allocID()
	} else if book.ID > b.nextID {
		b.nextID = book.ID
	}
	b.books[book.ID] = book
	return book
}

// AddMember stores a member and returns its ID.
func (b *Backend) AddMember(name, email string, joinedAt time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.allocID()
	b.members[id] = memberRow{id: id, name: name, email: email, joinedAt: joinedAt}
	return id
}

// Fail makes every resolution of the root field return message as an error.
func (b *Backend) Fail(field, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[field] = message
}

// Heal clears a failure set with Fail.
func (b *Backend) Heal(field string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, field)
}

// SetDown makes the endpoint answer 502 without a GraphQL body.
func (b *Backend) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

// Calls returns how many times the root field was resolved.
func (b *Backend) Calls(field string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[field]
}

// Authorizations returns the Authorization header of every request seen.
func (b *Backend) Authorizations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.auth...)
}

// Book returns the stored book with id.
func (b *Backend) Book(id int) (library.Book, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	book, ok := b.books[id]
	return book, ok
}

func (b *Backend) allocID() int {
	b.nextID++
	return b.nextID
}

// enter records a resolution of field and reports an injected failure.
func (b *Backend) enter(field string) error {
	b.calls[field]++
	if msg, ok := b.failures[field]; ok {
		return errors.New(msg)
	}
	return nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
