package lattice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/metrics"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/catalog"
	"github.com/aretw0/lattice/pkg/codec"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/editor"
	"github.com/aretw0/lattice/pkg/layout"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/validation"
)

// Workspace is the high-level entry point for the lattice library.
// It wires a store, the catalog, and the notification sink behind the
// validate/import/export/save operations a console needs.
type Workspace struct {
	base       ports.KeyValueStore
	store      ports.KeyValueStore
	catalog    *catalog.Catalog
	notifier   ports.Notifier
	metrics    *metrics.Collector
	logger     *slog.Logger
	exportedBy string
	newID      domain.IDGenerator
	now        func() time.Time

	locker      ports.DistributedLocker
	middlewares []middleware.Middleware
}

// Option defines a functional option for configuring the Workspace.
type Option func(*Workspace)

// WithStore sets the persistence backend (default: in-memory).
func WithStore(store ports.KeyValueStore) Option {
	return func(w *Workspace) {
		w.store = store
	}
}

// WithMiddleware wraps the store, first middleware outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(w *Workspace) {
		w.middlewares = append(w.middlewares, mws...)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// WithNotifier sets the sink for user-facing outcome messages.
func WithNotifier(n ports.Notifier) Option {
	return func(w *Workspace) {
		w.notifier = n
	}
}

// WithExporter sets the name recorded as exportedBy and as the owner of saved records.
func WithExporter(name string) Option {
	return func(w *Workspace) {
		w.exportedBy = name
	}
}

// WithLocker serializes catalog writes across processes.
func WithLocker(l ports.DistributedLocker) Option {
	return func(w *Workspace) {
		w.locker = l
	}
}

// WithMetrics records operation counters and store calls on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(w *Workspace) {
		w.metrics = c
	}
}

// WithIDGenerator overrides UUID generation for diagrams, nodes, edges and records.
func WithIDGenerator(gen domain.IDGenerator) Option {
	return func(w *Workspace) {
		w.newID = gen
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) {
		w.now = now
	}
}

// New initializes a Workspace.
func New(opts ...Option) (*Workspace, error) {
	w := &Workspace{
		exportedBy: "console",
		newID:      domain.NewUUID,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	if w.notifier == nil {
		w.notifier = ports.NopNotifier{}
	}
	if w.newID == nil || w.now == nil {
		return nil, fmt.Errorf("id generator and clock must not be nil")
	}
	if w.store == nil {
		w.store = memory.NewStore()
	}

	w.base = w.store
	mws := w.middlewares
	if w.metrics != nil {
		mws = append([]middleware.Middleware{middleware.NewMetricsMiddleware(w.metrics.StoreOps, w.metrics.StoreDuration)}, mws...)
	}
	w.store = middleware.Chain(w.store, mws...)

	w.catalog = catalog.New(w.store,
		catalog.WithLocker(w.locker),
		catalog.WithLogger(w.logger),
		catalog.WithIDGenerator(w.newID),
		catalog.WithClock(w.now),
	)
	return w, nil
}

// Catalog returns the persisted collections.
func (w *Workspace) Catalog() *catalog.Catalog {
	return w.catalog
}

// Store returns the store as seen by the catalog, middlewares included.
func (w *Workspace) Store() ports.KeyValueStore {
	return w.store
}

// Owner is the name recorded as creator and exporter.
func (w *Workspace) Owner() string {
	return w.exportedBy
}

// Metrics returns the collector, or nil when metrics are off.
func (w *Workspace) Metrics() *metrics.Collector {
	return w.metrics
}

// Watch signals when the underlying store changes on disk.
// Returns an error if the store does not support watching.
func (w *Workspace) Watch(ctx context.Context) (<-chan struct{}, error) {
	if wt, ok := w.base.(ports.Watchable); ok {
		return wt.Watch(ctx)
	}
	return nil, fmt.Errorf("current store does not support watching")
}

// Logger returns the workspace logger.
func (w *Workspace) Logger() *slog.Logger {
	return w.logger
}

func (w *Workspace) diagramOptions() []domain.DiagramOption {
	return []domain.DiagramOption{domain.WithIDGenerator(w.newID), domain.WithClock(w.now)}
}

// NewDiagram creates an empty draft bound to the workspace id generator and clock.
func (w *Workspace) NewDiagram(name string) *domain.Diagram {
	return domain.NewDiagram(name, w.diagramOptions()...)
}

func (w *Workspace) notify(ctx context.Context, level ports.Level, title, message string) {
	w.notifier.Notify(ctx, ports.Notification{
		Level:   level,
		Title:   title,
		Message: message,
		Time:    w.now(),
	})
}

// Validate checks d and publishes the summary.
func (w *Workspace) Validate(ctx context.Context, d *domain.Diagram) validation.Result {
	res := validation.Validate(d)
	if w.metrics != nil {
		w.metrics.RecordValidation(res.IsValid, len(res.Errors), len(res.Warnings))
	}

	level := ports.LevelSuccess
	switch {
	case !res.IsValid:
		level = ports.LevelError
	case len(res.Warnings) > 0:
		level = ports.LevelWarning
	}
	w.notify(ctx, level, "Validation", res.Summary())
	w.logger.Debug("diagram validated", "valid", res.IsValid, "errors", len(res.Errors), "warnings", len(res.Warnings))
	return res
}

// Export serializes d. JSON exports embed the validation report.
func (w *Workspace) Export(ctx context.Context, d *domain.Diagram, format codec.Format) ([]byte, error) {
	data, err := codec.Export(format, d, codec.ExportOptions{
		ExportedBy:        w.exportedBy,
		IncludeValidation: true,
		Now:               w.now,
	})
	if w.metrics != nil {
		w.metrics.RecordExport(string(format), err)
	}
	if err != nil {
		w.notify(ctx, ports.LevelError, "Export failed", err.Error())
		return nil, err
	}
	w.notify(ctx, ports.LevelSuccess, "Exported", fmt.Sprintf("%s (%s)", nameOf(d), format))
	return data, nil
}

// Import parses a process file by extension. Unreadable BPMN or YAML yields
// the placeholder skeleton with a warning; a malformed JSON export is an error.
func (w *Workspace) Import(ctx context.Context, filename string, data []byte) (codec.Imported, error) {
	format, err := codec.DetectFormat(filename)
	if err != nil {
		w.notify(ctx, ports.LevelError, "Import failed", err.Error())
		return codec.Imported{}, err
	}
	return w.ImportAs(ctx, format, filename, data)
}

// ImportAs is Import with an explicit format.
func (w *Workspace) ImportAs(ctx context.Context, format codec.Format, filename string, data []byte) (codec.Imported, error) {
	res, err := codec.ImportAs(format, filename, data, w.diagramOptions()...)
	if w.metrics != nil {
		w.metrics.RecordImport(string(format), err)
	}
	if err != nil {
		w.notify(ctx, ports.LevelError, "Import failed", err.Error())
		return codec.Imported{}, err
	}

	switch {
	case res.Placeholder:
		w.notify(ctx, ports.LevelWarning, "Imported with placeholder",
			fmt.Sprintf("%s could not be mapped; a Start, Task, End skeleton was created", filename))
	case res.Dropped > 0:
		w.notify(ctx, ports.LevelWarning, "Imported",
			fmt.Sprintf("%s: %d element(s) had no equivalent and were skipped", nameOf(res.Diagram), res.Dropped))
	default:
		w.notify(ctx, ports.LevelSuccess, "Imported", nameOf(res.Diagram))
	}
	return res, nil
}

// Save persists d into a diagram collection. On failure d is untouched and
// stays the source of truth; the error is published and returned, never retried.
func (w *Workspace) Save(ctx context.Context, collection string, d *domain.Diagram) (catalog.ProcessRecord, error) {
	rec, err := w.catalog.SaveDiagram(ctx, collection, d, w.exportedBy)
	if err != nil {
		w.logger.Warn("save failed", "collection", collection, "error", err)
		w.notify(ctx, ports.LevelError, "Save failed", err.Error())
		return catalog.ProcessRecord{}, err
	}
	d.LastModified = rec.UpdatedAt
	w.notify(ctx, ports.LevelSuccess, "Saved", nameOf(d))
	return rec, nil
}

// Load reads a stored diagram, publishing failures.
func (w *Workspace) Load(ctx context.Context, collection, id string) (*domain.Diagram, error) {
	d, err := w.catalog.LoadDiagram(ctx, collection, id)
	if err != nil {
		w.notify(ctx, ports.LevelError, "Load failed", err.Error())
		return nil, err
	}
	d.Configure(w.diagramOptions()...)
	return d, nil
}

// Instantiate creates a draft process from a template.
func (w *Workspace) Instantiate(ctx context.Context, templateID, name string) (*domain.Diagram, error) {
	rec, err := w.catalog.Instantiate(ctx, templateID, name, w.exportedBy)
	if err != nil {
		w.notify(ctx, ports.LevelError, "Template failed", err.Error())
		return nil, err
	}
	d, err := rec.Diagram(w.diagramOptions()...)
	if err != nil {
		return nil, err
	}
	w.notify(ctx, ports.LevelSuccess, "Process created", rec.Name)
	return d, nil
}

// Layout arranges d with the default layered layout.
func (w *Workspace) Layout(d *domain.Diagram) {
	layout.Layered(d, layout.DefaultOptions())
	if d != nil {
		d.Touch()
	}
}

// Edit opens an interaction controller over d.
func (w *Workspace) Edit(d *domain.Diagram, opts ...editor.Option) *editor.Controller {
	d.Configure(w.diagramOptions()...)
	return editor.New(d, append([]editor.Option{editor.WithLogger(w.logger)}, opts...)...)
}

func nameOf(d *domain.Diagram) string {
	if d == nil || d.Name == "" {
		return "Untitled"
	}
	return d.Name
}
