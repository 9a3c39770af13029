package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/pkg/catalog"
	"github.com/aretw0/lattice/pkg/codec"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/entity"
	"github.com/aretw0/lattice/pkg/validation"
)

// MaxBodySize caps request bodies (imports included).
const MaxBodySize = 10 << 20

// UserHeader names the caller recorded as createdBy; the workspace owner is used when absent.
const UserHeader = "X-Lattice-User"

// Server exposes a Workspace over HTTP.
type Server struct {
	Workspace *lattice.Workspace
	logger    *slog.Logger
}

// NewHandler creates a new HTTP handler for the workspace.
func NewHandler(ws *lattice.Workspace) http.Handler {
	s := &Server{Workspace: ws, logger: ws.Logger()}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if m := ws.Metrics(); m != nil {
		r.Use(instrument(m))
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/collections/{collection}", func(r chi.Router) {
		r.Get("/", s.ListEntities)
		r.Post("/", s.CreateEntity)
		r.Get("/search", s.SearchEntities)
		r.Get("/{id}", s.GetEntity)
		r.Put("/{id}", s.UpdateEntity)
		r.Delete("/{id}", s.DeleteEntity)
	})

	r.Route("/diagrams", func(r chi.Router) {
		r.Post("/validate", s.ValidateDiagram)
		r.Post("/import", s.ImportDiagram)
		r.Post("/export", s.ExportDiagram)
		r.Post("/layout", s.LayoutDiagram)
		r.Post("/mermaid", s.RenderMermaid)
	})
	r.Get("/processes/{id}/export", s.ExportProcess)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+UserHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrEntityNotFound), errors.Is(err, catalog.ErrUnknownCollection):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidEntity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrMalformedInput), errors.Is(err, domain.ErrInvalidKind):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	body := errorBody{Error: err.Error()}
	for _, e := range entity.ValidationErrors(err) {
		var ve *entity.ValidationError
		if errors.As(e, &ve) {
			if body.Fields == nil {
				body.Fields = map[string]string{}
			}
			body.Fields[ve.Key] = ve.Reason
		}
	}
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Warn(op+" rejected", "error", err, "status", status)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}
	if len(data) > MaxBodySize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrMalformedInput, MaxBodySize)
	}
	return data, nil
}

func (s *Server) owner(r *http.Request) string {
	if u := r.Header.Get(UserHeader); u != "" {
		return u
	}
	return s.Workspace.Owner()
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":         "lattice-http",
		"version":     lattice.Version,
		"format":      codec.FormatVersion,
		"collections": s.Workspace.Catalog().Names(),
	})
}

// SubscribeEvents handles GET /events: a server-sent "reload" whenever the store changes.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events, err := s.Workspace.Watch(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusNotImplemented)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: reload\n\n")
			flusher.Flush()
		}
	}
}

func (s *Server) collection(w http.ResponseWriter, r *http.Request) (catalog.Collection, bool) {
	c, err := s.Workspace.Catalog().Collection(chi.URLParam(r, "collection"))
	if err != nil {
		s.fail(w, "collection lookup", err)
		return nil, false
	}
	return c, true
}

// ListEntities handles GET /collections/{collection}.
func (s *Server) ListEntities(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	items, err := c.List(r.Context())
	if err != nil {
		s.fail(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// SearchEntities handles GET /collections/{collection}/search?q=&status=&createdBy=&limit=.
func (s *Server) SearchEntities(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	params := r.URL.Query()
	q := entity.Query{
		Text:      params.Get("q"),
		Status:    domain.Status(params.Get("status")),
		CreatedBy: params.Get("createdBy"),
	}
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.fail(w, "search", fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrMalformedInput))
			return
		}
		q.Limit = n
	}

	items, err := c.Search(r.Context(), q)
	if err != nil {
		s.fail(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetEntity handles GET /collections/{collection}/{id}.
func (s *Server) GetEntity(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	item, err := c.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateEntity handles POST /collections/{collection}.
func (s *Server) CreateEntity(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.fail(w, "create", err)
		return
	}
	item, err := c.Create(r.Context(), body, s.owner(r))
	if err != nil {
		s.fail(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// UpdateEntity handles PUT /collections/{collection}/{id}.
func (s *Server) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.fail(w, "update", err)
		return
	}
	item, err := c.Update(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		s.fail(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteEntity handles DELETE /collections/{collection}/{id}.
func (s *Server) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(w, r)
	if !ok {
		return
	}
	if err := c.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readDiagram decodes a JSON envelope body.
func (s *Server) readDiagram(r *http.Request) (*domain.Diagram, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	return codec.ImportJSON(body)
}

// ValidateDiagram handles POST /diagrams/validate.
func (s *Server) ValidateDiagram(w http.ResponseWriter, r *http.Request) {
	d, err := s.readDiagram(r)
	if err != nil {
		s.fail(w, "validate", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Workspace.Validate(r.Context(), d))
}

// importResponse wraps an imported diagram with the import outcome.
type importResponse struct {
	Diagram     json.RawMessage `json:"diagram"`
	Format      codec.Format    `json:"format"`
	Placeholder bool            `json:"placeholder"`
	Dropped     int             `json:"dropped"`
}

// ImportDiagram handles POST /diagrams/import?format=&filename=.
// The body is the raw document; the response is a JSON envelope.
func (s *Server) ImportDiagram(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	filename := params.Get("filename")
	if filename == "" {
		filename = "upload"
	}

	var format codec.Format
	var err error
	if name := params.Get("format"); name != "" {
		format, err = codec.ParseFormat(name)
	} else {
		format, err = codec.DetectFormat(filename)
	}
	if err != nil {
		s.fail(w, "import", err)
		return
	}

	body, err := readBody(r)
	if err != nil {
		s.fail(w, "import", err)
		return
	}
	res, err := s.Workspace.ImportAs(r.Context(), format, filename, body)
	if err != nil {
		s.fail(w, "import", err)
		return
	}
	env, err := codec.ExportJSON(res.Diagram, codec.ExportOptions{ExportedBy: s.Workspace.Owner()})
	if err != nil {
		s.fail(w, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{
		Diagram:     env,
		Format:      res.Format,
		Placeholder: res.Placeholder,
		Dropped:     res.Dropped,
	})
}

var contentTypes = map[codec.Format]string{
	codec.FormatJSON: "application/json",
	codec.FormatBPMN: "application/xml",
	codec.FormatYAML: "application/yaml",
}

func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, d *domain.Diagram) {
	format := codec.FormatJSON
	if name := r.URL.Query().Get("format"); name != "" {
		var err error
		if format, err = codec.ParseFormat(name); err != nil {
			s.fail(w, "export", err)
			return
		}
	}

	data, err := s.Workspace.Export(r.Context(), d, format)
	if err != nil {
		s.fail(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func exportName(format codec.Format) string {
	ext := map[codec.Format]string{codec.FormatJSON: ".json", codec.FormatBPMN: ".bpmn", codec.FormatYAML: ".yaml"}[format]
	return fmt.Sprintf("process-%s%s", time.Now().UTC().Format("2006-01-02"), ext)
}

// ExportDiagram handles POST /diagrams/export?format=.
func (s *Server) ExportDiagram(w http.ResponseWriter, r *http.Request) {
	d, err := s.readDiagram(r)
	if err != nil {
		s.fail(w, "export", err)
		return
	}
	s.writeExport(w, r, d)
}

// ExportProcess handles GET /processes/{id}/export?format=.
func (s *Server) ExportProcess(w http.ResponseWriter, r *http.Request) {
	d, err := s.Workspace.Load(r.Context(), catalog.Processes, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "export", err)
		return
	}
	s.writeExport(w, r, d)
}

// LayoutDiagram handles POST /diagrams/layout and returns the laid-out envelope.
func (s *Server) LayoutDiagram(w http.ResponseWriter, r *http.Request) {
	d, err := s.readDiagram(r)
	if err != nil {
		s.fail(w, "layout", err)
		return
	}
	s.Workspace.Layout(d)
	data, err := codec.ExportJSON(d, codec.ExportOptions{ExportedBy: s.Workspace.Owner()})
	if err != nil {
		s.fail(w, "layout", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// RenderMermaid handles POST /diagrams/mermaid. With ?overlay=true the
// nodes named by validation issues are highlighted.
func (s *Server) RenderMermaid(w http.ResponseWriter, r *http.Request) {
	d, err := s.readDiagram(r)
	if err != nil {
		s.fail(w, "mermaid", err)
		return
	}
	var overlay *graph.Overlay
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("overlay")); ok {
		overlay = graph.OverlayFromResult(validation.Validate(d))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(d, overlay))
}
