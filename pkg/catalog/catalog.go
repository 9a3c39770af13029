package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/entity"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/session"
)

// Collection names, used verbatim as store keys.
const (
	Processes      = "processes"
	Templates      = "templates"
	Projects       = "projects"
	Reports        = "reports"
	Users          = "users"
	Initiatives    = "initiatives"
	Collaborations = "collaborations"
)

// ErrUnknownCollection is returned for a collection name the catalog does not define.
var ErrUnknownCollection = errors.New("unknown collection")

// DiagramCollections hold ProcessRecords.
var DiagramCollections = []string{Processes, Templates, Projects}

// EntityCollections hold plain entities.
var EntityCollections = []string{Reports, Users, Initiatives, Collaborations}

// Records is a collection of diagrams.
type Records = entity.Collection[ProcessRecord, *ProcessRecord]

// Entities is a collection of plain entities.
type Entities = entity.Collection[domain.Entity, *domain.Entity]

// Catalog groups every collection over one store.
type Catalog struct {
	sessions *session.Manager
	records  map[string]*Records
	entities map[string]*Entities
	newID    domain.IDGenerator
	logger   *slog.Logger
}

type config struct {
	sessionOpts []session.Option
	entityOpts  []entity.Option
	newID       domain.IDGenerator
	logger      *slog.Logger
}

// Option configures a Catalog.
type Option func(*config)

// WithLocker serializes writes across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *config) {
		if locker != nil {
			c.sessionOpts = append(c.sessionOpts, session.WithLocker(locker))
		}
	}
}

// WithLogger sets the logger for the catalog and its collections.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
			c.sessionOpts = append(c.sessionOpts, session.WithLogger(logger))
			c.entityOpts = append(c.entityOpts, entity.WithLogger(logger))
		}
	}
}

// WithIDGenerator sets the id source for entities and instantiated diagrams.
func WithIDGenerator(gen domain.IDGenerator) Option {
	return func(c *config) {
		if gen != nil {
			c.newID = gen
			c.entityOpts = append(c.entityOpts, entity.WithIDGenerator(gen))
		}
	}
}

// WithClock sets the timestamp source for entities.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.entityOpts = append(c.entityOpts, entity.WithClock(now))
	}
}

// New builds the catalog over store.
func New(store ports.KeyValueStore, opts ...Option) *Catalog {
	cfg := config{newID: domain.NewUUID, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	sessions := session.NewManager(store, cfg.sessionOpts...)
	entityOpts := append([]entity.Option{entity.WithValidator(entity.NewValidator())}, cfg.entityOpts...)

	c := &Catalog{
		sessions: sessions,
		records:  make(map[string]*Records, len(DiagramCollections)),
		entities: make(map[string]*Entities, len(EntityCollections)),
		newID:    cfg.newID,
		logger:   cfg.logger,
	}
	for _, name := range DiagramCollections {
		c.records[name] = entity.New[ProcessRecord](name, sessions, entityOpts...)
	}
	for _, name := range EntityCollections {
		c.entities[name] = entity.New[domain.Entity](name, sessions, entityOpts...)
	}
	return c
}

// Names lists every collection.
func (c *Catalog) Names() []string {
	return append(append([]string{}, DiagramCollections...), EntityCollections...)
}

// Records returns a diagram collection by name.
func (c *Catalog) Records(name string) (*Records, error) {
	if r, ok := c.records[name]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %q holds no diagrams", ErrUnknownCollection, name)
}

// Entities returns a plain entity collection by name.
func (c *Catalog) Entities(name string) (*Entities, error) {
	if e, ok := c.entities[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// SaveDiagram upserts d into the named diagram collection, keyed by the diagram id.
func (c *Catalog) SaveDiagram(ctx context.Context, collection string, d *domain.Diagram, owner string) (ProcessRecord, error) {
	records, err := c.Records(collection)
	if err != nil {
		return ProcessRecord{}, err
	}
	if d == nil {
		return ProcessRecord{}, fmt.Errorf("%w: nil diagram", domain.ErrMalformedInput)
	}

	saved, err := records.Put(ctx, RecordFromDiagram(d), owner)
	if err != nil {
		return ProcessRecord{}, fmt.Errorf("failed to save %s/%s: %w", collection, d.ID, err)
	}
	c.logger.Debug("diagram saved", "collection", collection, "id", saved.ID, "nodes", len(saved.Nodes))
	return saved, nil
}

// LoadDiagram reads a stored diagram.
func (c *Catalog) LoadDiagram(ctx context.Context, collection, id string) (*domain.Diagram, error) {
	records, err := c.Records(collection)
	if err != nil {
		return nil, err
	}
	r, err := records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := r.Diagram(domain.WithIDGenerator(c.newID))
	if err != nil {
		return nil, fmt.Errorf("%s/%s is corrupt: %w", collection, id, err)
	}
	return d, nil
}

// Instantiate copies a template into a new draft process. Every node and edge
// receives a fresh id; references are remapped accordingly.
func (c *Catalog) Instantiate(ctx context.Context, templateID, name, owner string) (ProcessRecord, error) {
	tpl, err := c.records[Templates].Get(ctx, templateID)
	if err != nil {
		return ProcessRecord{}, err
	}

	if name == "" {
		name = tpl.Name
	}
	rec := ProcessRecord{
		Entity: domain.Entity{
			Name:        name,
			Description: tpl.Description,
			Status:      domain.StatusDraft,
		},
		Version:    "1.0",
		Category:   tpl.Category,
		Tags:       append([]string(nil), tpl.Tags...),
		TemplateID: tpl.ID,
		Nodes:      make([]domain.Node, 0, len(tpl.Nodes)),
		Edges:      make([]domain.Edge, 0, len(tpl.Edges)),
	}

	ids := make(map[string]string, len(tpl.Nodes))
	for _, n := range tpl.Nodes {
		cp := n.Clone()
		cp.ID = c.newID()
		ids[n.ID] = cp.ID
		rec.Nodes = append(rec.Nodes, cp)
	}
	for _, e := range tpl.Edges {
		src, okSrc := ids[e.SourceID]
		dst, okDst := ids[e.TargetID]
		if !okSrc || !okDst {
			continue
		}
		cp := e.Clone()
		cp.ID = c.newID()
		cp.SourceID, cp.TargetID = src, dst
		rec.Edges = append(rec.Edges, cp)
	}

	created, err := c.records[Processes].Create(ctx, rec, owner)
	if err != nil {
		return ProcessRecord{}, fmt.Errorf("failed to instantiate template %s: %w", templateID, err)
	}
	c.logger.Debug("template instantiated", "template", templateID, "process", created.ID)
	return created, nil
}
