// Package view turns a state snapshot into the display tree the HTML
// templates and the text renderer draw.
package view

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rpggio/libflow/internal/domain/session"
	"github.com/rpggio/libflow/internal/state"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	LoadingText      = "Fetching library statistics..."
	EmptyBooksText   = "No books found in the library."
	EmptyMembersText = "No members registered yet."
)

// NavItem is one entry of the sidebar.
type NavItem struct {
	Tab    state.Tab
	Label  string
	Href   string
	Active bool
}

// User is the signed-in user shown in the header.
type User struct {
	Name      string
	Email     string
	Initials  string
	AvatarURL string
}

// Banner reports collections that failed to load, so an empty table caused
// by a failure is distinguishable from an empty library.
type Banner struct {
	Failed  []string
	Message string
}

// DashboardView is the dashboard tab.
type DashboardView struct {
	Stats DashboardStats
	Cards []StatCard
}

// BooksView is the books tab. SearchPlaceholder and AddLabel belong to
// inert controls.
type BooksView struct {
	SearchPlaceholder string
	AddLabel          string
	Rows              []BookRow
	EmptyText         string
}

// MembersView is the members tab.
type MembersView struct {
	SearchPlaceholder string
	AddLabel          string
	Rows              []MemberRow
	EmptyText         string
}

// Page is the complete display tree for one request.
type Page struct {
	Title       string
	Tab         state.Tab
	Nav         []NavItem
	User        *User
	Loading     bool
	LoadingText string
	Banner      *Banner
	Dashboard   *DashboardView
	Books       *BooksView
	Members     *MembersView
	RefreshedAt time.Time
}

// Options tunes rendering.
type Options struct {
	// Location is used for dates. Nil means UTC.
	Location *time.Location
}

var titleCaser = cases.Title(language.English)

// Build maps a snapshot to a page. Only the active tab's view is populated;
// while loading, none is.
func Build(snap state.Snapshot, opts Options) Page {
	tab := snap.Tab
	if !tab.Valid() {
		tab = state.TabDashboard
	}

	page := Page{
		Title:       titleCaser.String(string(tab)),
		Tab:         tab,
		Nav:         navItems(tab),
		User:        userOf(snap.User),
		Loading:     snap.Loading,
		RefreshedAt: snap.RefreshedAt,
	}
	if failed := snap.Outcome.Failed(); len(failed) > 0 {
		page.Banner = &Banner{
			Failed:  failed,
			Message: "Could not load " + strings.Join(failed, " and ") + " from the library service.",
		}
	}
	if snap.Loading {
		page.LoadingText = LoadingText
		return page
	}

	switch tab {
	case state.TabDashboard:
		stats := Stats(snap.Books, snap.Members)
		page.Dashboard = &DashboardView{Stats: stats, Cards: stats.Cards()}
	case state.TabBooks:
		rows := BookRows(snap.Books)
		page.Books = &BooksView{
			SearchPlaceholder: "Search books...",
			AddLabel:          "Add Book",
			Rows:              rows,
			EmptyText:         emptyText(len(rows), EmptyBooksText),
		}
	case state.TabMembers:
		rows := MemberRows(snap.Members, opts.Location)
		page.Members = &MembersView{
			SearchPlaceholder: "Search members...",
			AddLabel:          "Add Member",
			Rows:              rows,
			EmptyText:         emptyText(len(rows), EmptyMembersText),
		}
	}
	return page
}

func emptyText(n int, text string) string {
	if n == 0 {
		return text
	}
	return ""
}

func navItems(active state.Tab) []NavItem {
	tabs := state.Tabs()
	items := make([]NavItem, 0, len(tabs))
	for _, t := range tabs {
		items = append(items, NavItem{
			Tab:    t,
			Label:  titleCaser.String(string(t)),
			Href:   "/" + string(t),
			Active: t == active,
		})
	}
	return items
}

func userOf(sess *session.Session) *User {
	if sess == nil {
		return nil
	}
	return &User{
		Name:      sess.Name,
		Email:     sess.Email,
		Initials:  Initials(sess.Name, sess.Email),
		AvatarURL: sess.AvatarURL,
	}
}

// Initials returns up to two uppercase letters for an avatar, from the
// name's first and last words, else the email's first letter.
func Initials(name, email string) string {
	var out []rune
	add := func(s string) {
		if r := firstLetter(s); r != 0 {
			out = append(out, r)
		}
	}
	if words := strings.Fields(name); len(words) > 0 {
		add(words[0])
		if len(words) > 1 {
			add(words[len(words)-1])
		}
	} else {
		add(email)
	}
	if len(out) == 0 {
		return "?"
	}
	return strings.ToUpper(string(out))
}

func firstLetter(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return 0
	}
	return r
}
