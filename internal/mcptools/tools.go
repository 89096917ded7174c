// Package mcptools exposes the scout session as MCP tools so an agent can
// scan pages and run the assistant operations.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/spigell/talent-scout/internal/ai"
	"github.com/spigell/talent-scout/internal/scout"
)

const ServerName = "talent-scout"

// NewServer returns an MCP server with every scout tool registered.
func NewServer(session *scout.Session, version string, log *zap.Logger) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	Register(srv, session, log)
	return srv
}

// Register adds the scout tools to srv.
func Register(srv *mcp.Server, session *scout.Session, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	t := &tools{session: session, logger: log}

	add(srv, t, &mcp.Tool{
		Name:        "scan_page",
		Description: "Map the visible text of a profile page into numbered anchors. Pass either html captured from the browser or a target path/URL.",
		InputSchema: inputSchema(map[string]any{
			"html":   map[string]any{"type": "string", "description": "Page markup"},
			"url":    map[string]any{"type": "string", "description": "Address the markup was captured from"},
			"target": map[string]any{"type": "string", "description": "File path or URL to load"},
		}, nil),
	}, t.scan)

	add(srv, t, &mcp.Tool{
		Name:        "inspect_anchors",
		Description: "Return tag, text and link target for anchors issued by the latest scan.",
		InputSchema: inputSchema(map[string]any{
			"anchors": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
		}, []string{"anchors"}),
	}, t.inspect)

	add(srv, t, &mcp.Tool{
		Name:        "extract_profile",
		Description: "Structure a page map into a candidate profile. Uses the latest scan when map is omitted.",
		InputSchema: inputSchema(map[string]any{
			"map": map[string]any{"type": "string", "description": "Page map produced by scan_page"},
			"url": map[string]any{"type": "string", "description": "Profile URL"},
		}, nil),
	}, t.profile)

	add(srv, t, &mcp.Tool{
		Name:        "score_fit",
		Description: "Score how well a candidate fits a job description, 0 to 100.",
		InputSchema: inputSchema(map[string]any{
			"candidate": map[string]any{"type": "object"},
			"job":       map[string]any{"type": "string", "description": "Job description, text or HTML"},
		}, []string{"candidate", "job"}),
	}, t.fit)

	add(srv, t, &mcp.Tool{
		Name:        "generate_outreach",
		Description: "Draft a short personalised outreach message to a candidate.",
		InputSchema: inputSchema(map[string]any{
			"candidate": map[string]any{"type": "object"},
			"job":       map[string]any{"type": "string", "description": "Optional job description"},
		}, []string{"candidate"}),
	}, t.outreach)
}

type tools struct {
	session *scout.Session
	logger  *zap.Logger
}

type handler func(ctx context.Context, args json.RawMessage) (any, error)

func add(srv *mcp.Server, t *tools, tool *mcp.Tool, h handler) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := h(ctx, req.Params.Arguments)
		if err != nil {
			t.logger.Info("mcp tool failed", zap.String("tool", tool.Name), zap.Error(err))
			var res mcp.CallToolResult
			res.SetError(errors.New(ai.UserMessage(err)))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// invalidArgs is reported verbatim instead of through ai.UserMessage.
type invalidArgs struct{ err error }

func (e invalidArgs) Error() string       { return "invalid arguments: " + e.err.Error() }
func (e invalidArgs) Unwrap() error       { return e.err }
func (e invalidArgs) UserMessage() string { return e.Error() }

func decode(args json.RawMessage, into any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, into); err != nil {
		return invalidArgs{err}
	}
	return nil
}

func (t *tools) scan(ctx context.Context, args json.RawMessage) (any, error) {
	var r struct {
		HTML   string `json:"html"`
		URL    string `json:"url"`
		Target string `json:"target"`
	}
	if err := decode(args, &r); err != nil {
		return nil, err
	}

	var (
		res *scout.ScanResult
		err error
	)
	switch {
	case strings.TrimSpace(r.HTML) != "":
		res, err = t.session.ScanHTML(r.HTML, r.URL, false)
	case strings.TrimSpace(r.Target) != "":
		res, err = t.session.ScanTarget(ctx, r.Target, false)
	default:
		err = errors.New("either html or target is required")
	}
	if err != nil {
		return nil, invalidArgs{err}
	}
	return res, nil
}

func (t *tools) inspect(_ context.Context, args json.RawMessage) (any, error) {
	var r struct {
		Anchors []int `json:"anchors"`
	}
	if err := decode(args, &r); err != nil {
		return nil, err
	}
	if len(r.Anchors) == 0 {
		return nil, invalidArgs{errors.New("anchors are required")}
	}
	return map[string]any{"elements": t.session.Inspect(r.Anchors)}, nil
}

func (t *tools) profile(ctx context.Context, args json.RawMessage) (any, error) {
	var r struct {
		Map string `json:"map"`
		URL string `json:"url"`
	}
	if err := decode(args, &r); err != nil {
		return nil, err
	}
	return t.session.ExtractProfile(ctx, r.Map, r.URL)
}

type candidateArgs struct {
	Candidate *ai.Candidate `json:"candidate"`
	Job       string        `json:"job"`
}

func (t *tools) fit(ctx context.Context, args json.RawMessage) (any, error) {
	var r candidateArgs
	if err := decode(args, &r); err != nil {
		return nil, err
	}
	if r.Candidate == nil {
		return nil, invalidArgs{errors.New("candidate is required")}
	}
	return t.session.ScoreFit(ctx, r.Candidate, r.Job)
}

func (t *tools) outreach(ctx context.Context, args json.RawMessage) (any, error) {
	var r candidateArgs
	if err := decode(args, &r); err != nil {
		return nil, err
	}
	if r.Candidate == nil {
		return nil, invalidArgs{errors.New("candidate is required")}
	}
	message, err := t.session.WriteOutreach(ctx, r.Candidate, r.Job)
	if err != nil {
		return nil, err
	}
	return map[string]string{"message": message}, nil
}
