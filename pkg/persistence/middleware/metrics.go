package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

type metricsMiddleware struct {
	next     ports.KeyValueStore
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsMiddleware records every store call. ops must have the labels
// (operation, status) and duration the label (operation).
func NewMetricsMiddleware(ops *prometheus.CounterVec, duration *prometheus.HistogramVec) Middleware {
	return func(next ports.KeyValueStore) ports.KeyValueStore {
		return &metricsMiddleware{next: next, ops: ops, duration: duration}
	}
}

func (m *metricsMiddleware) observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		status = "miss"
	case err != nil:
		status = "error"
	}
	m.ops.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *metricsMiddleware) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := m.next.Get(ctx, key)
	m.observe("get", start, err)
	return value, err
}

func (m *metricsMiddleware) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := m.next.Set(ctx, key, value)
	m.observe("set", start, err)
	return err
}

func (m *metricsMiddleware) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := m.next.Delete(ctx, key)
	m.observe("delete", start, err)
	return err
}

func (m *metricsMiddleware) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := m.next.Keys(ctx)
	m.observe("keys", start, err)
	return keys, err
}
