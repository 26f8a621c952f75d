package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/libflow/internal/domain/library"
	"github.com/rpggio/libflow/internal/graphql"
	"github.com/rpggio/libflow/internal/mcp"
	"github.com/rpggio/libflow/internal/testbackend"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, backend *testbackend.Backend, logger *slog.Logger) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	srv := testbackend.Start(t, backend)
	server := mcp.NewServer(mcp.Config{
		Library: graphql.New(srv.URL, graphql.Options{}),
		Logger:  logger,
		Version: "test",
	})

	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func structured[T any](t *testing.T, res *sdkmcp.CallToolResult) T {
	t.Helper()
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func seeded() *testbackend.Backend {
	b := testbackend.New()
	b.Seed()
	return b
}

func TestListTools(t *testing.T) {
	cs := connect(t, seeded(), nil)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{"library_dashboard", "list_books", "list_members"}, names)
}

func TestDashboardTool(t *testing.T) {
	cs := connect(t, seeded(), nil)

	res := callTool(t, cs, "library_dashboard", nil)
	require.False(t, res.IsError)
	require.Contains(t, text(t, res), "Unique Titles")

	out := structured[mcp.DashboardResult](t, res)
	require.Equal(t, 3, out.Stats.UniqueTitles)
	require.Equal(t, 2, out.Stats.Members)
	require.Equal(t, 10, out.Stats.TotalCopies)
	require.Equal(t, 6, out.Stats.AvailableCopies)
	require.Equal(t, 4, out.Stats.ActiveBorrows)
	require.Empty(t, out.Warnings)
}

func TestDashboardToolReportsPartialFailure(t *testing.T) {
	b := seeded()
	b.Fail("members", "members table locked")
	cs := connect(t, b, nil)

	res := callTool(t, cs, "library_dashboard", nil)
	require.False(t, res.IsError)
	out := structured[mcp.DashboardResult](t, res)
	require.Equal(t, 3, out.Stats.UniqueTitles)
	require.Zero(t, out.Stats.Members)
	require.Len(t, out.Warnings, 1)
	require.Equal(t, "members", out.Warnings[0].Collection)
	require.Equal(t, "BACKEND_ERROR", out.Warnings[0].Code)
	require.Equal(t, "members table locked", out.Warnings[0].Message)
}

func TestDashboardToolFailsWhenBackendDown(t *testing.T) {
	b := seeded()
	b.SetDown(true)
	cs := connect(t, b, nil)

	res := callTool(t, cs, "library_dashboard", nil)
	require.True(t, res.IsError)
	require.Contains(t, text(t, res), "BACKEND_UNREACHABLE")
}

func TestListBooksTool(t *testing.T) {
	cs := connect(t, seeded(), nil)

	res := callTool(t, cs, "list_books", nil)
	require.False(t, res.IsError)
	require.Contains(t, text(t, res), "Dune")
	out := structured[mcp.ListBooksResult](t, res)
	require.Equal(t, 3, out.Total)
	require.Equal(t, "Dune", out.Books[0].Title)
	require.Equal(t, "3/5", out.Books[0].Availability)
	require.Equal(t, 60, out.Books[0].Percent)
}

func TestListToolsFetchOnlyTheirCollection(t *testing.T) {
	b := seeded()
	cs := connect(t, b, nil)

	callTool(t, cs, "list_books", nil)
	require.Equal(t, 1, b.Calls("books"))
	require.Zero(t, b.Calls("members"))

	callTool(t, cs, "list_members", nil)
	require.Equal(t, 1, b.Calls("books"))
	require.Equal(t, 1, b.Calls("members"))
}

func TestListBooksIgnoresOtherCollectionFailure(t *testing.T) {
	b := testbackend.New()
	b.AddBook(testbackendBook("Out", 2, 0))
	b.AddBook(testbackendBook("In", 2, 1))
	b.Fail("members", "members table locked")
	cs := connect(t, b, nil)

	res := callTool(t, cs, "list_books", nil)
	require.False(t, res.IsError)
	out := structured[mcp.ListBooksResult](t, res)
	require.Equal(t, 2, out.Total)
	require.Equal(t, "0/2", out.Books[0].Availability)
	require.Zero(t, out.Books[0].Percent)
}

func TestListBooksToolEmpty(t *testing.T) {
	cs := connect(t, testbackend.New(), nil)

	res := callTool(t, cs, "list_books", nil)
	require.False(t, res.IsError)
	require.Contains(t, text(t, res), "No books found in the library.")
	out := structured[mcp.ListBooksResult](t, res)
	require.Zero(t, out.Total)
}

func TestListBooksToolFailure(t *testing.T) {
	b := seeded()
	b.Fail("books", "catalogue offline")
	cs := connect(t, b, nil)

	res := callTool(t, cs, "list_books", nil)
	require.True(t, res.IsError)
	require.Contains(t, text(t, res), "catalogue offline")
}

func TestListMembersTool(t *testing.T) {
	cs := connect(t, seeded(), nil)

	out := structured[mcp.ListMembersResult](t, callTool(t, cs, "list_members", nil))
	require.Equal(t, 2, out.Total)
	require.Equal(t, "Alice Johnson", out.Members[0].Name)
	require.Equal(t, "Jan 15, 2023", out.Members[0].Joined)
	require.Equal(t, "Bob Smith", out.Members[1].Name)
}

func TestGlossaryResource(t *testing.T) {
	cs := connect(t, seeded(), nil)

	res, err := cs.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "libflow://docs/glossary"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "Active borrows")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTrafficIsLoggedAtDebug(t *testing.T) {
	var buf lockedBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cs := connect(t, seeded(), logger)

	callTool(t, cs, "list_members", nil)
	require.Contains(t, buf.String(), "mcp traffic")
	require.Contains(t, buf.String(), "method=tools/call")
}

func testbackendBook(title string, total, available int) library.Book {
	return library.Book{Title: title, Author: "Anon", PublishedYear: 2000, TotalCopies: total, AvailableCopies: available}
}
