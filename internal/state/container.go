// Package state holds the per-session library view state and the refresh
// logic that fills it.
package state

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rpggio/libflow/internal/domain/library"
	"github.com/rpggio/libflow/internal/domain/session"
	"golang.org/x/sync/errgroup"
)

const defaultRefreshTimeout = 30 * time.Second

// Fetcher reads the library collections.
type Fetcher interface {
	Books(ctx context.Context) ([]library.Book, error)
	Members(ctx context.Context) ([]library.Member, error)
}

// SessionEnder ends a persisted session.
type SessionEnder interface {
	End(ctx context.Context, id string) error
}

// Options configures containers.
type Options struct {
	Fetcher  Fetcher
	Sessions SessionEnder
	Logger   *slog.Logger
	Metrics  *Metrics
	// RefreshTimeout bounds refreshes started with RefreshAsync.
	RefreshTimeout time.Duration
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = defaultRefreshTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Container is the state machine for one session:
// unauthenticated -> loading -> ready(tab), and back to unauthenticated on
// logout. All fields are guarded by mu.
type Container struct {
	opts Options

	mu            sync.Mutex
	sess          *session.Session
	authenticated bool
	mounted       bool
	phase         Phase
	tab           Tab
	loading       bool
	books         []library.Book
	members       []library.Member
	outcome       Outcome
	generation    uint64
	refreshedAt   time.Time
	inflight      int
	idle          chan struct{}
}

// New creates a container. Whether sess is valid is decided here, once.
func New(sess *session.Session, opts Options) *Container {
	opts = opts.withDefaults()
	return &Container{
		opts:          opts,
		sess:          sess,
		authenticated: sess.Authenticated(opts.Now()),
		phase:         PhaseUnauthenticated,
		tab:           TabDashboard,
		books:         []library.Book{},
		members:       []library.Member{},
	}
}

// Mount starts the initial load for an authenticated container. It reports
// whether a load was started; later calls do nothing.
func (c *Container) Mount() bool {
	c.mu.Lock()
	if c.mounted || !c.authenticated {
		c.mu.Unlock()
		return false
	}
	c.mounted = true
	c.phase = PhaseLoading
	c.mu.Unlock()

	_, err := c.RefreshAsync()
	return err == nil
}

// Refresh fetches both collections and applies them in one transition.
// Collection failures are reported in the returned Outcome, not as an error.
// The error is ErrNotAuthenticated or ErrStale.
func (c *Container) Refresh(ctx context.Context) (Outcome, error) {
	gen, sess, err := c.begin()
	if err != nil {
		return Outcome{}, err
	}
	return c.run(ctx, gen, sess)
}

// RefreshAsync starts a refresh on a detached context bounded by the
// configured timeout and returns its generation.
func (c *Container) RefreshAsync() (uint64, error) {
	gen, sess, err := c.begin()
	if err != nil {
		return 0, err
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.RefreshTimeout)
		defer cancel()
		_, _ = c.run(ctx, gen, sess)
	}()
	return gen, nil
}

// Wait blocks until no refresh is in flight.
func (c *Container) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetTab switches the active view. It never fetches.
func (c *Container) SetTab(tab Tab) error {
	if !tab.Valid() {
		return ErrUnknownTab
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseReady {
		return ErrNotReady
	}
	c.tab = tab
	return nil
}

// Logout returns the container to unauthenticated and ends the persisted
// session. A store failure is logged; the local transition always happens.
func (c *Container) Logout(ctx context.Context) {
	c.mu.Lock()
	var id string
	if c.sess != nil {
		id = c.sess.ID
	}
	c.generation++
	c.sess = nil
	c.authenticated = false
	c.phase = PhaseUnauthenticated
	c.tab = TabDashboard
	c.loading = false
	c.books = []library.Book{}
	c.members = []library.Member{}
	c.outcome = Outcome{}
	c.mu.Unlock()

	if c.opts.Sessions == nil || id == "" {
		return
	}
	if err := c.opts.Sessions.End(ctx, id); err != nil {
		c.opts.Logger.Warn("failed to end session", "session_id", id, "error", err)
	}
}

// Snapshot returns a copy of the current state.
func (c *Container) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Phase:       c.phase,
		Tab:         c.tab,
		Loading:     c.loading,
		Books:       slices.Clone(c.books),
		Members:     slices.Clone(c.members),
		Outcome:     c.outcome,
		Generation:  c.generation,
		RefreshedAt: c.refreshedAt,
		User:        c.sess,
	}
}

// begin opens a new generation and marks the container loading.
func (c *Container) begin() (uint64, *session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authenticated {
		return 0, nil, ErrNotAuthenticated
	}
	c.generation++
	c.loading = true
	c.inflight++
	if c.inflight == 1 {
		c.idle = make(chan struct{})
	}
	return c.generation, c.sess, nil
}

func (c *Container) run(ctx context.Context, gen uint64, sess *session.Session) (Outcome, error) {
	if sess != nil {
		ctx = session.WithSession(ctx, sess)
	}

	var (
		books    []library.Book
		members  []library.Member
		booksErr error
		memsErr  error
		g        errgroup.Group
	)
	g.Go(func() error {
		books, booksErr = c.opts.Fetcher.Books(ctx)
		return nil
	})
	g.Go(func() error {
		members, memsErr = c.opts.Fetcher.Members(ctx)
		return nil
	})
	_ = g.Wait()

	outcome := Outcome{Books: booksErr, Members: memsErr}
	if booksErr != nil || books == nil {
		books = []library.Book{}
	}
	if memsErr != nil || members == nil {
		members = []library.Member{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if c.inflight == 0 && c.idle != nil {
		close(c.idle)
		c.idle = nil
	}

	if gen != c.generation {
		c.opts.Metrics.refresh(refreshStale)
		c.opts.Logger.Debug("discarding stale refresh", "generation", gen, "current", c.generation)
		return outcome, ErrStale
	}

	for _, b := range books {
		if err := b.Validate(); err != nil {
			c.opts.Logger.Warn("inconsistent book from backend", "book_id", b.ID, "error", err)
		}
	}
	if err := outcome.Err(); err != nil {
		c.opts.Logger.Error("library refresh failed", "generation", gen, "failed", outcome.Failed(), "error", err)
	}

	c.books = books
	c.members = members
	c.outcome = outcome
	c.loading = false
	c.phase = PhaseReady
	c.refreshedAt = c.opts.Now()
	c.opts.Metrics.refresh(refreshLabel(outcome))
	return outcome, nil
}

func refreshLabel(o Outcome) string {
	switch len(o.Failed()) {
	case 0:
		return refreshOK
	case 1:
		return refreshPartial
	default:
		return refreshFailed
	}
}

// IsStale reports whether err came from a discarded refresh.
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}

// Once runs a single refresh outside any session and returns the resulting
// snapshot. The snapshot's User is nil.
func Once(ctx context.Context, fetcher Fetcher, logger *slog.Logger) Snapshot {
	opts := Options{Fetcher: fetcher, Logger: logger}.withDefaults()
	c := &Container{
		opts:          opts,
		authenticated: true,
		mounted:       true,
		phase:         PhaseLoading,
		tab:           TabDashboard,
		books:         []library.Book{},
		members:       []library.Member{},
	}
	_, _ = c.Refresh(ctx)
	return c.Snapshot()
}
