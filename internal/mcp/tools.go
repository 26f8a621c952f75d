package mcp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/libflow/internal/domain/library"
	"github.com/rpggio/libflow/internal/state"
	"github.com/rpggio/libflow/internal/view"
	"github.com/samber/lo"
)

type tools struct {
	library state.Fetcher
	logger  *slog.Logger
}

func registerTools(server *sdkmcp.Server, t *tools) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "library_dashboard",
		Description: "Summary statistics for the library: unique titles, members, available copies and active borrows",
	}, t.dashboard)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_books",
		Description: "List the catalogue with per-title availability",
	}, t.listBooks)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_members",
		Description: "List registered library members with their join dates",
	}, t.listMembers)
}

// fetch runs one refresh and builds the page for tab.
func (t *tools) fetch(ctx context.Context, tab state.Tab) (state.Snapshot, view.Page) {
	snap := state.Once(ctx, t.library, t.logger)
	snap.Tab = tab
	return snap, view.Build(snap, view.Options{})
}

func (t *tools) dashboard(ctx context.Context, _ *sdkmcp.CallToolRequest, _ DashboardParams) (*sdkmcp.CallToolResult, DashboardResult, error) {
	snap, page := t.fetch(ctx, state.TabDashboard)

	out := DashboardResult{Stats: page.Dashboard.Stats}
	for _, c := range []struct {
		name string
		err  error
	}{{"books", snap.Outcome.Books}, {"members", snap.Outcome.Members}} {
		if apiErr := MapError(c.err); apiErr != nil {
			out.Warnings = append(out.Warnings, Warning{Collection: c.name, Code: apiErr.Code, Message: apiErr.Message})
		}
	}
	if len(out.Warnings) == 2 {
		return nil, DashboardResult{}, MapError(snap.Outcome.Books)
	}
	return textResult(page), out, nil
}

func (t *tools) listBooks(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListBooksParams) (*sdkmcp.CallToolResult, ListBooksResult, error) {
	books, err := t.library.Books(ctx)
	if err != nil {
		t.logger.Warn("list_books fetch failed", "error", err)
		return nil, ListBooksResult{}, MapError(err)
	}
	page := view.Build(listSnapshot(state.TabBooks, books, nil), view.Options{})

	out := ListBooksResult{
		Books: lo.Map(page.Books.Rows, func(r view.BookRow, _ int) Book {
			return Book{ID: r.ID, Title: r.Title, Author: r.Author, Year: r.Year, Availability: r.Availability, Percent: r.Percent}
		}),
		Total: len(books),
	}
	return textResult(page), out, nil
}

func (t *tools) listMembers(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListMembersParams) (*sdkmcp.CallToolResult, ListMembersResult, error) {
	members, err := t.library.Members(ctx)
	if err != nil {
		t.logger.Warn("list_members fetch failed", "error", err)
		return nil, ListMembersResult{}, MapError(err)
	}
	page := view.Build(listSnapshot(state.TabMembers, nil, members), view.Options{})

	out := ListMembersResult{
		Members: lo.Map(page.Members.Rows, func(r view.MemberRow, _ int) Member {
			return Member{ID: r.ID, Name: r.Name, Email: r.Email, Joined: r.Joined}
		}),
		Total: len(members),
	}
	return textResult(page), out, nil
}

// listSnapshot is a ready snapshot holding only the collection tab shows.
func listSnapshot(tab state.Tab, books []library.Book, members []library.Member) state.Snapshot {
	if books == nil {
		books = []library.Book{}
	}
	if members == nil {
		members = []library.Member{}
	}
	return state.Snapshot{Phase: state.PhaseReady, Tab: tab, Books: books, Members: members}
}

// textResult renders page as the plain-text table the CLI prints.
func textResult(page view.Page) *sdkmcp.CallToolResult {
	var buf bytes.Buffer
	if err := view.WriteText(&buf, page, view.TextOptions{}); err != nil {
		buf.Reset()
		fmt.Fprintf(&buf, "render failed: %v", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: buf.String()}},
	}
}
