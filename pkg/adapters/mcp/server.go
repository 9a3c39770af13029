package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/pkg/catalog"
	"github.com/aretw0/lattice/pkg/codec"
	"github.com/aretw0/lattice/pkg/entity"
	"github.com/aretw0/lattice/pkg/validation"
)

// Server exposes a Workspace as an MCP server.
type Server struct {
	ws        *lattice.Workspace
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(ws *lattice.Workspace) *Server {
	s := &Server{
		ws:        ws,
		mcpServer: server.NewMCPServer("lattice-mcp", lattice.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("validate_diagram",
		mcp.WithDescription("Check a process diagram (JSON export envelope) for structural errors and warnings."),
		mcp.WithString("diagram", mcp.Required(), mcp.Description("The diagram as a JSON envelope with nodes and edges")),
		mcp.WithOutputSchema[validation.Result](),
	), s.handleValidate)

	s.mcpServer.AddTool(mcp.NewTool("convert_diagram",
		mcp.WithDescription("Convert a process document between json, bpmn and yaml."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The source document")),
		mcp.WithString("from", mcp.Required(), mcp.Description("Source format"), mcp.Enum("json", "bpmn", "yaml")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Target format"), mcp.Enum("json", "bpmn", "yaml")),
	), s.handleConvert)

	s.mcpServer.AddTool(mcp.NewTool("render_mermaid",
		mcp.WithDescription("Render a diagram (JSON envelope) as a Mermaid flowchart."),
		mcp.WithString("diagram", mcp.Required(), mcp.Description("The diagram as a JSON envelope")),
		mcp.WithBoolean("overlay", mcp.Description("Highlight nodes with validation issues")),
	), s.handleMermaid)

	s.mcpServer.AddTool(mcp.NewTool("list_processes",
		mcp.WithDescription("List stored diagrams, most recently updated first."),
		mcp.WithString("collection", mcp.Description("processes (default), templates or projects")),
		mcp.WithString("query", mcp.Description("Case-insensitive text matched against name and description")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.handleList)

	s.mcpServer.AddTool(mcp.NewTool("get_process",
		mcp.WithDescription("Fetch a stored diagram in the requested format."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The process id")),
		mcp.WithString("collection", mcp.Description("processes (default), templates or projects")),
		mcp.WithString("format", mcp.Description("json (default), bpmn or yaml")),
	), s.handleGet)
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("diagram")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := codec.ImportJSON([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid diagram: %v", err)), nil
	}
	res := s.ws.Validate(ctx, d)
	return mcp.NewToolResultStructured(res, res.Summary()), nil
}

func (s *Server) handleConvert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := codec.ParseFormat(request.GetString("from", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := codec.ParseFormat(request.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.ws.ImportAs(ctx, from, "converted", []byte(content))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("import failed: %v", err)), nil
	}
	if res.Placeholder {
		return mcp.NewToolResultError(fmt.Sprintf("the %s document could not be mapped to a diagram", from)), nil
	}
	out, err := s.ws.Export(ctx, res.Diagram, to)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) handleMermaid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("diagram")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := codec.ImportJSON([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid diagram: %v", err)), nil
	}
	var overlay *graph.Overlay
	if request.GetBool("overlay", false) {
		overlay = graph.OverlayFromResult(validation.Validate(d))
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(d, overlay)), nil
}

// processSummary is what list_processes returns per record.
type processSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Server) records(request mcp.CallToolRequest) (*catalog.Records, error) {
	return s.ws.Catalog().Records(request.GetString("collection", catalog.Processes))
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.records(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	found, err := records.Search(ctx, entity.Query{
		Text:  request.GetString("query", ""),
		Limit: request.GetInt("limit", 0),
	})
	if err != nil {
		return nil, fmt.Errorf("list failed: %w", err)
	}

	out := make([]processSummary, 0, len(found))
	for _, r := range found {
		out = append(out, processSummary{
			ID:        r.ID,
			Name:      r.Name,
			Status:    string(r.Status),
			Nodes:     len(r.Nodes),
			Edges:     len(r.Edges),
			UpdatedAt: r.UpdatedAt,
		})
	}
	data, _ := json.Marshal(out)
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := codec.ParseFormat(request.GetString("format", string(codec.FormatJSON)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.ws.Load(ctx, request.GetString("collection", catalog.Processes), id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.ws.Export(ctx, d, format)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("lattice://collections", "Stored Collections",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		counts := make(map[string]int)
		for _, name := range s.ws.Catalog().Names() {
			c, err := s.ws.Catalog().Collection(name)
			if err != nil {
				return nil, err
			}
			items, err := c.List(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", name, err)
			}
			data, _ := json.Marshal(items)
			var arr []json.RawMessage
			_ = json.Unmarshal(data, &arr)
			counts[name] = len(arr)
		}
		jsonBytes, _ := json.Marshal(counts)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "lattice://collections",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
