package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/libflow/internal/domain/library"
	"github.com/rpggio/libflow/internal/domain/session"
)

// Phase is the top-level state of a container.
type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseLoading         Phase = "loading"
	PhaseReady           Phase = "ready"
)

// Tab names a view.
type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabBooks     Tab = "books"
	TabMembers   Tab = "members"
)

// Tabs lists the views in navigation order.
func Tabs() []Tab {
	return []Tab{TabDashboard, TabBooks, TabMembers}
}

// ParseTab validates a tab name.
func ParseTab(name string) (Tab, error) {
	tab := Tab(name)
	if !tab.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTab, name)
	}
	return tab, nil
}

// Valid reports whether t is one of the known tabs.
func (t Tab) Valid() bool {
	switch t {
	case TabDashboard, TabBooks, TabMembers:
		return true
	}
	return false
}

// Outcome records which collections failed in the last applied refresh.
// A nil field means that collection was fetched successfully.
type Outcome struct {
	Books   error
	Members error
}

// OK reports whether both collections were fetched.
func (o Outcome) OK() bool {
	return o.Books == nil && o.Members == nil
}

// Failed returns the names of the collections that failed.
func (o Outcome) Failed() []string {
	var failed []string
	if o.Books != nil {
		failed = append(failed, "books")
	}
	if o.Members != nil {
		failed = append(failed, "members")
	}
	return failed
}

// Err joins the collection errors, or returns nil.
func (o Outcome) Err() error {
	var errs []error
	if o.Books != nil {
		errs = append(errs, fmt.Errorf("books: %w", o.Books))
	}
	if o.Members != nil {
		errs = append(errs, fmt.Errorf("members: %w", o.Members))
	}
	return errors.Join(errs...)
}

// Snapshot is a copy of a container's state at one instant.
type Snapshot struct {
	Phase       Phase
	Tab         Tab
	Loading     bool
	Books       []library.Book
	Members     []library.Member
	Outcome     Outcome
	Generation  uint64
	RefreshedAt time.Time
	User        *session.Session
}

// Authenticated reports whether the snapshot belongs to a live session.
func (s Snapshot) Authenticated() bool {
	return s.Phase != PhaseUnauthenticated
}
