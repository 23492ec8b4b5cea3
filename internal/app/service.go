// Package service provides the catalog reader that implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/okian/imagecatalog/internal/adapters/kv"
	"github.com/okian/imagecatalog/internal/domain/catalog"
	"github.com/okian/imagecatalog/pkg/logger"
	"github.com/okian/imagecatalog/pkg/metrics"
)

// Service reads catalog entries from a KV namespace. It holds no request
// state; counters exist only for /stats.
type Service struct {
	store     kv.Namespace
	namespace string
	backend   string
	logger    logger.Logger

	lists     atomic.Int64
	redirects atomic.Int64
	dropped   atomic.Int64
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNamespaceName records the namespace name reported in stats.
func WithNamespaceName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.namespace = name
		}
	}
}

// WithBackendName records the backend name reported in stats.
func WithBackendName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.backend = name
		}
	}
}

// New constructs a Service reading from store.
func New(store kv.Namespace, opts ...Option) *Service {
	s := &Service{
		store:     store,
		namespace: "worker-dynamic-quickemu",
		backend:   kv.BackendMemory,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("catalog")
	}
	return s
}

// List returns the list entries for every key under "<os>-", in store
// order. Keys whose metadata is absent or undecodable are skipped.
func (s *Service) List(ctx context.Context, os string) ([]catalog.ListEntry, error) {
	if os == "" {
		return nil, ErrBadRequest
	}
	s.lists.Add(1)

	keys, err := s.store.List(ctx, catalog.Prefix(os))
	if err != nil {
		s.logger.Warn(ctx, "list failed", logger.String("os", os), logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrNoValues, err)
	}
	if len(keys) == 0 {
		return nil, ErrNoValues
	}

	entries := make([]catalog.ListEntry, 0, len(keys))
	for _, key := range keys {
		denom, ok := catalog.Denom(os, key.Name)
		if !ok {
			s.drop(ctx, key.Name, "key outside prefix")
			continue
		}
		md, err := catalog.DecodeMetadata(key.Metadata)
		if err != nil {
			s.drop(ctx, key.Name, err.Error())
			continue
		}
		entries = append(entries, catalog.NewListEntry(os, denom, md))
	}
	metrics.RecordListEntries(len(entries))
	return entries, nil
}

func (s *Service) drop(ctx context.Context, key, reason string) {
	s.dropped.Add(1)
	metrics.RecordMetadataDropped()
	s.logger.Debug(ctx, "dropping listed key", logger.String("key", key), logger.String("reason", reason))
}

// Resolve looks up "<os>-<denom>" and returns the download URL it points
// at. A stored failure is returned as *StoredFailure.
func (s *Service) Resolve(ctx context.Context, os, denom string) (*url.URL, error) {
	if os == "" || denom == "" {
		return nil, ErrBadRequest
	}
	s.redirects.Add(1)

	key := catalog.Key(os, denom)
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if !kv.IsNotFound(err) {
			s.logger.Warn(ctx, "get failed", logger.String("key", key), logger.Error(err))
		}
		metrics.RecordRedirectOutcome("not_found")
		return nil, fmt.Errorf("%w: %w", ErrNoMatch, err)
	}
	entry, err := catalog.DecodeEntry(raw)
	if err != nil {
		s.logger.Debug(ctx, "undecodable entry", logger.String("key", key), logger.Error(err))
		metrics.RecordRedirectOutcome("not_found")
		return nil, fmt.Errorf("%w: %w", ErrNoMatch, err)
	}
	if entry.IsFailure() {
		metrics.RecordRedirectOutcome("stored_failure")
		return nil, &StoredFailure{Message: entry.Error}
	}

	target, err := url.Parse(entry.URL)
	if err != nil || !target.IsAbs() {
		s.logger.Warn(ctx, "stored url is not absolute", logger.String("key", key), logger.String("url", entry.URL))
		metrics.RecordRedirectOutcome("bad_url")
		return nil, ErrUnknown
	}
	metrics.RecordRedirectOutcome("redirect")
	return target, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"namespace":       s.namespace,
		"backend":         s.backend,
		"listRequests":    s.lists.Load(),
		"redirectLookups": s.redirects.Load(),
		"droppedKeys":     s.dropped.Load(),
	}
}

// Close releases the underlying namespace.
func (s *Service) Close() error {
	return s.store.Close()
}
