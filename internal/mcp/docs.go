package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `libflow is a read-only view of a library catalogue served by a GraphQL backend.

Tools:
- library_dashboard: counts of unique titles, members, available copies and active borrows.
- list_books: catalogue rows with "available/total" availability.
- list_members: members with join dates.

Every call fetches fresh data. The list tools fetch only their own collection. If one collection fails the dashboard still answers and lists the failure under warnings.
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "libflow://docs/glossary",
		Name:        "glossary",
		Title:       "libflow glossary",
		Description: "Definitions of the numbers the tools report.",
		Content: `# Glossary

- **Unique titles**: number of catalogue entries. Copies of the same title count once.
- **Total copies**: sum of total_copies over all books.
- **Available copies**: copies currently on the shelf.
- **Active borrows**: total copies minus available copies. Derived, not a count of borrow records.
- **Availability**: "available/total" for one title; available_percent is the same as 0..100.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
