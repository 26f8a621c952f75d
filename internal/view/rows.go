package view

import (
	"strconv"
	"time"

	"github.com/rpggio/libflow/internal/domain/library"
	"github.com/samber/lo"
)

// JoinedLayout formats member join dates.
const JoinedLayout = "Jan 2, 2006"

// BookRow is one line of the books table.
type BookRow struct {
	ID           int
	Title        string
	Author       string
	Year         int
	Availability string
	// Percent is available/total as 0..100. It is 0 when total is 0.
	Percent int
}

// MemberRow is one line of the members table.
type MemberRow struct {
	ID     int
	Name   string
	Email  string
	Joined string
}

// BookRows maps books to table rows in input order.
func BookRows(books []library.Book) []BookRow {
	return lo.Map(books, func(b library.Book, _ int) BookRow {
		return BookRow{
			ID:           b.ID,
			Title:        b.Title,
			Author:       b.Author,
			Year:         b.PublishedYear,
			Availability: strconv.Itoa(b.AvailableCopies) + "/" + strconv.Itoa(b.TotalCopies),
			Percent:      availabilityPercent(b.AvailableCopies, b.TotalCopies),
		}
	})
}

func availabilityPercent(available, total int) int {
	if total <= 0 {
		return 0
	}
	return lo.Clamp(available*100/total, 0, 100)
}

// MemberRows maps members to table rows, formatting join dates in loc.
func MemberRows(members []library.Member, loc *time.Location) []MemberRow {
	if loc == nil {
		loc = time.UTC
	}
	return lo.Map(members, func(m library.Member, _ int) MemberRow {
		joined := "-"
		if !m.JoinedAt.IsZero() {
			joined = m.JoinedAt.In(loc).Format(JoinedLayout)
		}
		return MemberRow{ID: m.ID, Name: m.Name, Email: m.Email, Joined: joined}
	})
}
