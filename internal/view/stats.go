package view

import (
	"github.com/rpggio/libflow/internal/domain/library"
	"github.com/samber/lo"
)

// DashboardStats are the aggregates shown on the dashboard. They are
// recomputed from the collections on every build.
type DashboardStats struct {
	UniqueTitles    int `json:"unique_titles"`
	Members         int `json:"members"`
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
	ActiveBorrows   int `json:"active_borrows"`
}

// Stats computes the dashboard aggregates.
func Stats(books []library.Book, members []library.Member) DashboardStats {
	total := lo.SumBy(books, func(b library.Book) int { return b.TotalCopies })
	available := lo.SumBy(books, func(b library.Book) int { return b.AvailableCopies })
	return DashboardStats{
		UniqueTitles:    len(books),
		Members:         len(members),
		TotalCopies:     total,
		AvailableCopies: available,
		ActiveBorrows:   total - available,
	}
}

// StatCard is one tile on the dashboard.
type StatCard struct {
	Label string
	Value int
	Icon  string
}

// Cards lays the stats out in display order.
func (s DashboardStats) Cards() []StatCard {
	return []StatCard{
		{Label: "Unique Titles", Value: s.UniqueTitles, Icon: "book"},
		{Label: "Total Members", Value: s.Members, Icon: "users"},
		{Label: "Available Copies", Value: s.AvailableCopies, Icon: "shelf"},
		{Label: "Active Borrows", Value: s.ActiveBorrows, Icon: "repeat"},
	}
}
