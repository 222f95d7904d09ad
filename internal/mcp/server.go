package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kokistudios/mark/internal/bookmark"
	"github.com/kokistudios/mark/internal/query"
)

// Server wraps the MCP server with mark's bookmark collection.
type Server struct {
	mu     sync.Mutex
	col    *bookmark.Collection
	server *mcp.Server
}

// NewServer creates a new mark MCP server.
func NewServer(col *bookmark.Collection, version string) *Server {
	s := &Server{col: col}

	impl := &mcp.Implementation{
		Name:    "mark",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "mark_search",
		Description: "Search the user's bookmarks. The query is a comma-separated list of clauses that must all match, " +
			"optionally followed by '%' and clauses whose matches are excluded. A clause is field=term " +
			"(fields: uid, alias, title, description, url, tags, any) or a bare term matched against title, description and url. " +
			"In tags clauses, '+' separates alternatives. Example: 'title=golang,tags=dev+tools%url=example.com'. " +
			"An empty query returns every bookmark.",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "mark_info",
		Description: "Get every field of one bookmark by its alias.",
	}, s.handleInfo)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "mark_tags",
		Description: "List every tag in use with the number of bookmarks carrying it. Use before searching with tags=...",
	}, s.handleTags)
}

// refresh reloads the collection so edits made outside the server are seen.
func (s *Server) refresh() error {
	if err := s.col.Refresh(); err != nil {
		return fmt.Errorf("failed to load bookmarks: %w", err)
	}
	return nil
}

// SearchArgs defines the input for mark_search.
type SearchArgs struct {
	Query  string   `json:"query,omitempty" jsonschema:"Filter expression, e.g. 'tags=go,title=blog%url=medium.com'. Empty returns all bookmarks."`
	Fields []string `json:"fields,omitempty" jsonschema:"Limit output to these fields in this order (uid, alias, title, description, url, tags, created, updated). Omit for full records."`
	Limit  int      `json:"limit,omitempty" jsonschema:"Maximum number of results (default: all)"`
}

// SearchResult is the output of mark_search. Either Bookmarks or Columns and
// Rows are set, depending on whether fields were requested.
type SearchResult struct {
	Count     int            `json:"count"`
	Bookmarks []query.Record `json:"bookmarks,omitempty"`
	Columns   []string       `json:"columns,omitempty"`
	Rows      [][]string     `json:"rows,omitempty"`
	Message   string         `json:"message,omitempty"`
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refresh(); err != nil {
		return nil, nil, err
	}

	results := query.Execute(s.col.List(), args.Query)
	if args.Limit > 0 && len(results) > args.Limit {
		results = results[:args.Limit]
	}

	out := SearchResult{Count: len(results)}
	if len(results) == 0 {
		out.Message = "No bookmarks matched. Try fewer clauses, or call mark_tags to see which tags exist."
		return nil, out, nil
	}

	if fields := query.ParseFields(args.Fields); len(fields) > 0 {
		for _, f := range fields {
			out.Columns = append(out.Columns, f.String())
		}
		for _, row := range query.Project(results, fields) {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = v.Text
			}
			out.Rows = append(out.Rows, cells)
		}
		return nil, out, nil
	}

	for _, b := range results {
		out.Bookmarks = append(out.Bookmarks, query.NewRecord(b))
	}
	return nil, out, nil
}

// InfoArgs defines input for mark_info.
type InfoArgs struct {
	Alias string `json:"alias" jsonschema:"The bookmark alias (e.g. 5kzb)"`
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest, args InfoArgs) (*mcp.CallToolResult, any, error) {
	if args.Alias == "" {
		return nil, nil, fmt.Errorf("alias is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refresh(); err != nil {
		return nil, nil, err
	}

	b, err := s.col.Get(args.Alias)
	if err != nil {
		return nil, nil, err
	}
	return nil, query.NewRecord(b), nil
}

// TagsArgs defines input for mark_tags.
type TagsArgs struct{}

// TagCount is one entry of TagsResult.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagsResult is the output of mark_tags.
type TagsResult struct {
	Tags    []TagCount `json:"tags"`
	Count   int        `json:"count"`
	Message string     `json:"message,omitempty"`
}

func (s *Server) handleTags(ctx context.Context, req *mcp.CallToolRequest, args TagsArgs) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refresh(); err != nil {
		return nil, nil, err
	}

	out := TagsResult{Tags: []TagCount{}}
	for _, tc := range s.col.Tags() {
		out.Tags = append(out.Tags, TagCount{Tag: tc.Tag, Count: tc.Count})
	}
	out.Count = len(out.Tags)
	if out.Count == 0 {
		out.Message = "No tags found. Tag bookmarks with `mark modify <alias> --tags +name`."
	}
	return nil, out, nil
}
