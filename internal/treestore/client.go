package treestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chat-sync-service/internal/observability"
)

// Client implements Store on top of a Backend, adding path validation,
// value normalization, change listeners and instrumentation.
type Client struct {
	backend    Backend
	listeners  *listenerRegistry
	relay      Relay
	instanceID string
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithRelay forwards change events to other instances through r.
func WithRelay(r Relay) Option {
	return func(c *Client) { c.relay = r }
}

// NewClient wraps backend.
func NewClient(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend:    backend,
		listeners:  newListenerRegistry(),
		instanceID: uuid.NewString(),
		tracer:     otel.Tracer("chat-sync-service/treestore"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewMemoryClient returns a Client over a fresh in-memory backend.
func NewMemoryClient() *Client {
	return NewClient(NewMemoryBackend())
}

// Start subscribes to the relay, if any, so that writes made by other
// instances reach local listeners.
func (c *Client) Start(ctx context.Context) error {
	if c.relay == nil {
		return nil
	}
	return c.relay.Subscribe(ctx, func(ev ChangeEvent) {
		if ev.Origin == c.instanceID {
			return
		}
		c.listeners.dispatch(ev)
	})
}

// Close releases the relay.
func (c *Client) Close() error {
	if c.relay == nil {
		return nil
	}
	return c.relay.Close()
}

func (c *Client) Get(ctx context.Context, path string) (any, error) {
	var out any
	err := c.instrument(ctx, "get", path, func(ctx context.Context) error {
		clean, err := CleanPath(path)
		if err != nil {
			return err
		}
		raw, err := c.backend.Read(ctx, clean)
		if err != nil {
			return err
		}
		if raw == nil {
			return nil
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("decode %s: %w", clean, err)
		}
		out = expand(generic)
		return nil
	})
	return out, err
}

func (c *Client) GetInto(ctx context.Context, path string, dst any) (bool, error) {
	value, err := c.Get(ctx, path)
	if err != nil || value == nil {
		return false, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func (c *Client) Set(ctx context.Context, path string, value any) error {
	return c.instrument(ctx, "set", path, func(ctx context.Context) error {
		return c.write(ctx, map[string]any{path: value})
	})
}

func (c *Client) Update(ctx context.Context, path string, fields map[string]any) error {
	return c.instrument(ctx, "update", path, func(ctx context.Context) error {
		updates := make(map[string]any, len(fields))
		for k, v := range fields {
			updates[Join(path, k)] = v
		}
		return c.write(ctx, updates)
	})
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.instrument(ctx, "delete", path, func(ctx context.Context) error {
		return c.write(ctx, map[string]any{path: nil})
	})
}

func (c *Client) Patch(ctx context.Context, updates map[string]any) error {
	return c.instrument(ctx, "patch", "", func(ctx context.Context) error {
		return c.write(ctx, updates)
	})
}

func (c *Client) Listen(ctx context.Context, path string, fn ChangeFunc) error {
	clean, err := CleanPath(path)
	if err != nil {
		log.Printf("treestore listen rejected path=%q: %v", path, err)
		return err
	}
	c.listeners.add(ctx, clean, fn)
	log.Printf("treestore listening path=%s backend=%s", clean, c.backend.Name())
	return nil
}

func (c *Client) write(ctx context.Context, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	canonical := make(map[string]any, len(updates))
	for p, v := range updates {
		clean, err := CleanPath(p)
		if err != nil {
			return err
		}
		if clean == "" {
			return fmt.Errorf("%w: writes to the root are not allowed", ErrInvalidPath)
		}
		value, err := canonicalize(v)
		if err != nil {
			return fmt.Errorf("%s: %w", clean, err)
		}
		canonical[clean] = value
	}
	paths := sortedKeys(canonical)
	if err := checkOverlap(paths); err != nil {
		return err
	}
	if err := c.backend.Write(ctx, canonical); err != nil {
		return err
	}
	c.notify(ctx, paths)
	return nil
}

func (c *Client) notify(ctx context.Context, paths []string) {
	ev := ChangeEvent{Paths: paths, Origin: c.instanceID, At: time.Now().UTC()}
	c.listeners.dispatch(ev)
	if c.relay == nil {
		return
	}
	if err := c.relay.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Printf("treestore relay publish failed: %v", err)
	}
}

func (c *Client) instrument(ctx context.Context, op, path string, fn func(context.Context) error) error {
	backend := c.backend.Name()
	ctx, span := c.tracer.Start(ctx, "treestore."+op, trace.WithAttributes(
		attribute.String("treestore.backend", backend),
		attribute.String("treestore.path", path),
	))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	observability.ObserveStoreOperation(backend, op, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

var _ Store = (*Client)(nil)
