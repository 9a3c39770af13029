package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/session"
	"github.com/go-playground/validator/v10"
)

// Pointer constrains P to *T where T embeds domain.Entity.
type Pointer[T any] interface {
	*T
	domain.Record
}

type config struct {
	newID    domain.IDGenerator
	now      func() time.Time
	validate *validator.Validate
	logger   *slog.Logger
}

// Option configures a Collection.
type Option func(*config)

// WithIDGenerator overrides the UUID generator.
func WithIDGenerator(gen domain.IDGenerator) Option {
	return func(c *config) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithValidator shares a validator instance (and its custom rules).
func WithValidator(v *validator.Validate) Option {
	return func(c *config) {
		if v != nil {
			c.validate = v
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewValidator returns a validator that reports JSON field names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Query filters Search results. Zero fields match everything.
type Query struct {
	// Text matches name or description, case-insensitively.
	Text      string        `json:"text,omitempty"`
	Status    domain.Status `json:"status,omitempty"`
	CreatedBy string        `json:"createdBy,omitempty"`
	// Limit caps the number of results; 0 means no cap.
	Limit int `json:"limit,omitempty"`
}

func (q Query) matches(e *domain.Entity) bool {
	if q.Status != "" && e.Status != q.Status {
		return false
	}
	if q.CreatedBy != "" && !strings.EqualFold(e.CreatedBy, q.CreatedBy) {
		return false
	}
	if text := strings.ToLower(strings.TrimSpace(q.Text)); text != "" {
		return strings.Contains(strings.ToLower(e.Name), text) ||
			strings.Contains(strings.ToLower(e.Description), text)
	}
	return true
}

// Collection stores all items of one kind under a single key.
type Collection[T any, P Pointer[T]] struct {
	key      string
	sessions *session.Manager
	cfg      config
}

// New binds a collection to key.
func New[T any, P Pointer[T]](key string, sessions *session.Manager, opts ...Option) *Collection[T, P] {
	cfg := config{
		newID:  domain.NewUUID,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.validate == nil {
		cfg.validate = NewValidator()
	}
	return &Collection[T, P]{key: key, sessions: sessions, cfg: cfg}
}

// Key returns the store key backing the collection.
func (c *Collection[T, P]) Key() string {
	return c.key
}

func (c *Collection[T, P]) decode(data []byte) ([]T, error) {
	if data == nil {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("collection %q is corrupt: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Collection[T, P]) load(ctx context.Context) ([]T, error) {
	data, err := c.sessions.Load(ctx, c.key)
	if err != nil {
		if isNotFound(err) {
			return []T{}, nil
		}
		return nil, err
	}
	return c.decode(data)
}

// mutate runs fn over the current items and persists the result.
func (c *Collection[T, P]) mutate(ctx context.Context, fn func([]T) ([]T, error)) error {
	return c.sessions.Update(ctx, c.key, func(current []byte) ([]byte, error) {
		items, err := c.decode(current)
		if err != nil {
			return nil, err
		}
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal collection %q: %w", c.key, err)
		}
		return data, nil
	})
}

// Integrity is implemented by items whose consistency spans several fields
// and cannot be expressed as struct tags.
type Integrity interface {
	Integrity() error
}

func (c *Collection[T, P]) check(item P) error {
	if err := c.cfg.validate.Struct(item); err != nil {
		return fromValidator(err)
	}
	if it, ok := any(item).(Integrity); ok {
		if err := it.Integrity(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidEntity, err)
		}
	}
	return nil
}

func indexOf[T any, P Pointer[T]](items []T, id string) int {
	for i := range items {
		if P(&items[i]).Meta().ID == id {
			return i
		}
	}
	return -1
}

// Create assigns a fresh id and timestamps, validates, and appends item.
func (c *Collection[T, P]) Create(ctx context.Context, item T, owner string) (T, error) {
	var zero T
	meta := P(&item).Meta()
	now := c.cfg.now()
	meta.ID = c.cfg.newID()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	meta.CreatedBy = owner
	if meta.Status == "" {
		meta.Status = domain.StatusActive
	}
	if err := c.check(P(&item)); err != nil {
		return zero, err
	}

	err := c.mutate(ctx, func(items []T) ([]T, error) {
		return append(items, item), nil
	})
	if err != nil {
		return zero, err
	}
	c.cfg.logger.Debug("entity created", "collection", c.key, "id", meta.ID)
	return item, nil
}

// Get returns the item with id.
func (c *Collection[T, P]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	items, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	i := indexOf[T, P](items, id)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s/%s", domain.ErrEntityNotFound, c.key, id)
	}
	return items[i], nil
}

// List returns every item in insertion order.
func (c *Collection[T, P]) List(ctx context.Context) ([]T, error) {
	return c.load(ctx)
}

// Update applies fn to the stored item and refreshes UpdatedAt.
// The id, creation time and creator cannot be changed through fn.
func (c *Collection[T, P]) Update(ctx context.Context, id string, fn func(P) error) (T, error) {
	var updated T
	err := c.mutate(ctx, func(items []T) ([]T, error) {
		i := indexOf[T, P](items, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrEntityNotFound, c.key, id)
		}

		candidate := items[i]
		before := *P(&items[i]).Meta()
		if err := fn(P(&candidate)); err != nil {
			return nil, err
		}

		meta := P(&candidate).Meta()
		meta.ID = before.ID
		meta.CreatedAt = before.CreatedAt
		meta.CreatedBy = before.CreatedBy
		meta.UpdatedAt = c.cfg.now()
		if err := c.check(P(&candidate)); err != nil {
			return nil, err
		}

		items[i] = candidate
		updated = candidate
		return items, nil
	})
	return updated, err
}

// Put inserts item or replaces the stored item with the same id.
// A replaced item keeps its creation time and creator; a new item without an id gets one.
func (c *Collection[T, P]) Put(ctx context.Context, item T, owner string) (T, error) {
	var zero T
	meta := P(&item).Meta()
	if meta.ID == "" {
		return c.Create(ctx, item, owner)
	}

	err := c.mutate(ctx, func(items []T) ([]T, error) {
		now := c.cfg.now()
		meta.UpdatedAt = now
		if meta.Status == "" {
			meta.Status = domain.StatusActive
		}

		i := indexOf[T, P](items, meta.ID)
		if i >= 0 {
			prev := P(&items[i]).Meta()
			meta.CreatedAt = prev.CreatedAt
			meta.CreatedBy = prev.CreatedBy
		} else {
			meta.CreatedAt = now
			meta.CreatedBy = owner
		}
		if err := c.check(P(&item)); err != nil {
			return nil, err
		}

		if i >= 0 {
			items[i] = item
			return items, nil
		}
		return append(items, item), nil
	})
	if err != nil {
		return zero, err
	}
	return item, nil
}

// Remove deletes the item with id.
func (c *Collection[T, P]) Remove(ctx context.Context, id string) error {
	err := c.mutate(ctx, func(items []T) ([]T, error) {
		i := indexOf[T, P](items, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrEntityNotFound, c.key, id)
		}
		return append(items[:i], items[i+1:]...), nil
	})
	if err == nil {
		c.cfg.logger.Debug("entity removed", "collection", c.key, "id", id)
	}
	return err
}

// Search returns matching items, most recently updated first.
func (c *Collection[T, P]) Search(ctx context.Context, q Query) ([]T, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(items))
	for i := range items {
		if q.matches(P(&items[i]).Meta()) {
			out = append(out, items[i])
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return P(&out[a]).Meta().UpdatedAt.After(P(&out[b]).Meta().UpdatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
