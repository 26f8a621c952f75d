package mcp

import "github.com/rpggio/libflow/internal/view"

type DashboardParams struct{}

type ListBooksParams struct{}

type ListMembersParams struct{}

// Warning names a collection the backend failed to return.
type Warning struct {
	Collection string `json:"collection"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

type DashboardResult struct {
	Stats    view.DashboardStats `json:"stats"`
	Warnings []Warning           `json:"warnings,omitempty"`
}

type Book struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Year         int    `json:"published_year"`
	Availability string `json:"availability"`
	Percent      int    `json:"available_percent"`
}

type ListBooksResult struct {
	Books []Book `json:"books"`
	Total int    `json:"total"`
}

type Member struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Joined string `json:"joined"`
}

type ListMembersResult struct {
	Members []Member `json:"members"`
	Total   int      `json:"total"`
}
