package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/domain"
	"github.com/ledgeros/console-bfa-go/internal/infra/observability"
	"github.com/ledgeros/console-bfa-go/internal/port"
)

var collectionTracer = otel.Tracer("service/collection")

// Validator is a form that checks and normalizes itself before submission.
type Validator interface {
	Validate() error
}

// Collection is the generic CRUD page: load the whole list, mutate, then
// refetch the whole list. There are no optimistic updates and no retries.
type Collection[T any] struct {
	name      string
	label     string
	api       port.Resource[T]
	snapshots port.Snapshots[[]T]
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewCollection binds a page named name to one endpoint group. label is
// the record noun used in failure messages, e.g. "loan".
func NewCollection[T any](name, label string, api port.Resource[T], snapshots port.Snapshots[[]T], metrics *observability.Metrics, logger *zap.Logger) *Collection[T] {
	return &Collection[T]{name: name, label: label, api: api, snapshots: snapshots, metrics: metrics, logger: logger}
}

// Name is the page's view name.
func (c *Collection[T]) Name() string { return c.name }

// Load fetches the full collection. The result lands in the page snapshot
// only if no later load has landed first; either way the newest snapshot
// is returned.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	ctx, span := collectionTracer.Start(ctx, "Collection.Load")
	defer span.End()
	span.SetAttributes(attribute.String("collection", c.name))

	return fetchView(ctx, c.snapshots, c.name, c.metrics, func(ctx context.Context) ([]T, error) {
		items, err := c.api.List(ctx, nil)
		if err != nil {
			return nil, domain.Failed(err, "Failed to load "+c.name)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	})
}

// Snapshot returns the last loaded list without fetching.
func (c *Collection[T]) Snapshot() ([]T, bool) {
	return c.snapshots.Get(c.name)
}

// Create validates in, posts it and returns the refreshed list.
func (c *Collection[T]) Create(ctx context.Context, in Validator) ([]T, error) {
	ctx, span := collectionTracer.Start(ctx, "Collection.Create")
	defer span.End()
	span.SetAttributes(attribute.String("collection", c.name))

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := c.api.Create(ctx, in); err != nil {
		return nil, domain.Failed(err, "Failed to save "+c.label)
	}
	c.logger.Info("record created", zap.String("collection", c.name))
	return c.Load(ctx)
}

// Update validates in, replaces record id and returns the refreshed list.
func (c *Collection[T]) Update(ctx context.Context, id string, in Validator) ([]T, error) {
	ctx, span := collectionTracer.Start(ctx, "Collection.Update")
	defer span.End()
	span.SetAttributes(attribute.String("collection", c.name), attribute.String("record.id", id))

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := c.api.Update(ctx, id, in); err != nil {
		return nil, domain.Failed(err, "Failed to save "+c.label)
	}
	c.logger.Info("record updated", zap.String("collection", c.name), zap.String("id", id))
	return c.Load(ctx)
}

// Delete removes record id once confirmed. An unconfirmed delete is
// silently dropped: no call is made and deleted is false.
func (c *Collection[T]) Delete(ctx context.Context, id string, confirmed bool) (items []T, deleted bool, err error) {
	ctx, span := collectionTracer.Start(ctx, "Collection.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("collection", c.name), attribute.String("record.id", id))

	if !confirmed {
		return nil, false, nil
	}
	if err := c.api.Delete(ctx, id); err != nil {
		return nil, false, domain.Failed(err, "Failed to delete "+c.label)
	}
	c.logger.Info("record deleted", zap.String("collection", c.name), zap.String("id", id))
	items, err = c.Load(ctx)
	return items, true, err
}

// Reset drops the snapshot.
func (c *Collection[T]) Reset() {
	c.snapshots.Reset()
}

// fetchView runs one sequenced fetch of view. A failed fetch leaves the
// snapshot untouched. When a later fetch has already landed, the stale
// result is discarded and the newer snapshot is returned instead.
func fetchView[T any](ctx context.Context, snapshots port.Snapshots[T], view string, metrics *observability.Metrics, fetch func(context.Context) (T, error)) (T, error) {
	seq := snapshots.Begin(view)
	start := time.Now()
	value, err := fetch(ctx)
	metrics.RecordRequestDuration("view."+view, time.Since(start))
	if err != nil {
		var zero T
		return zero, err
	}
	if snapshots.Apply(view, seq, value) {
		return value, nil
	}
	if newer, ok := snapshots.Get(view); ok {
		return newer, nil
	}
	return value, nil
}
