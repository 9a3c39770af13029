package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/entity"
)

// Collection is a type-erased view of any catalog collection. Items travel as
// JSON so transports can serve every collection through the same handlers.
type Collection interface {
	Name() string
	List(ctx context.Context) (any, error)
	Get(ctx context.Context, id string) (any, error)
	Create(ctx context.Context, body []byte, owner string) (any, error)
	// Update decodes body over the stored item, so absent fields keep their value.
	Update(ctx context.Context, id string, body []byte) (any, error)
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q entity.Query) (any, error)
}

// Collection returns the named collection as a JSON-facing view.
func (c *Catalog) Collection(name string) (Collection, error) {
	if r, ok := c.records[name]; ok {
		return erased[ProcessRecord, *ProcessRecord]{name: name, c: r}, nil
	}
	if e, ok := c.entities[name]; ok {
		return erased[domain.Entity, *domain.Entity]{name: name, c: e}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

type erased[T any, P entity.Pointer[T]] struct {
	name string
	c    *entity.Collection[T, P]
}

func (e erased[T, P]) Name() string { return e.name }

func (e erased[T, P]) List(ctx context.Context) (any, error) {
	items, err := e.c.List(ctx)
	if items == nil {
		items = []T{}
	}
	return items, err
}

func (e erased[T, P]) Get(ctx context.Context, id string) (any, error) {
	return e.c.Get(ctx, id)
}

func (e erased[T, P]) Create(ctx context.Context, body []byte, owner string) (any, error) {
	var item T
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}
	return e.c.Create(ctx, item, owner)
}

func (e erased[T, P]) Update(ctx context.Context, id string, body []byte) (any, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid JSON body", domain.ErrMalformedInput)
	}
	return e.c.Update(ctx, id, func(item P) error {
		if err := json.Unmarshal(body, item); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
		}
		return nil
	})
}

func (e erased[T, P]) Remove(ctx context.Context, id string) error {
	return e.c.Remove(ctx, id)
}

func (e erased[T, P]) Search(ctx context.Context, q entity.Query) (any, error) {
	items, err := e.c.Search(ctx, q)
	if items == nil {
		items = []T{}
	}
	return items, err
}
