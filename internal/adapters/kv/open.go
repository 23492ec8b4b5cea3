package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/imagecatalog/pkg/metrics"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend    string
	Namespace  string
	SQLitePath string
	Minio      MinioConfig
}

// Open builds the configured backend, wrapped with operation metrics.
func Open(ctx context.Context, opts Options) (Namespace, error) {
	var (
		ns  Namespace
		err error
	)
	switch opts.Backend {
	case BackendMemory, "":
		ns = NewMemoryNamespace()
	case BackendSQLite:
		ns, err = OpenSQLite(ctx, opts.SQLitePath, opts.Namespace)
	case BackendMinio:
		ns, err = OpenMinio(ctx, opts.Minio, opts.Namespace)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	backend := opts.Backend
	if backend == "" {
		backend = BackendMemory
	}
	return Instrument(ns, backend), nil
}

// Instrumented records latency and outcome of every namespace call.
type Instrumented struct {
	Namespace
	backend string
}

// Instrument wraps ns so each Get and List is observed under backend.
func Instrument(ns Namespace, backend string) *Instrumented {
	return &Instrumented{Namespace: ns, backend: backend}
}

// Unwrap returns the wrapped backend.
func (i *Instrumented) Unwrap() Namespace {
	return i.Namespace
}

// Get implements Namespace.
func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := i.Namespace.Get(ctx, key)
	i.observe("get", start, err)
	return v, err
}

// List implements Namespace.
func (i *Instrumented) List(ctx context.Context, prefix string) ([]Key, error) {
	start := time.Now()
	keys, err := i.Namespace.List(ctx, prefix)
	i.observe("list", start, err)
	return keys, err
}

// Put forwards to the wrapped backend when it is writable.
func (i *Instrumented) Put(ctx context.Context, key string, value, metadata []byte) error {
	w, ok := i.Namespace.(Writer)
	if !ok {
		return fmt.Errorf("%s backend is read-only", i.backend)
	}
	return w.Put(ctx, key, value, metadata)
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case IsNotFound(err):
		result = "not_found"
	default:
		result = "error"
	}
	metrics.RecordKVOperation(i.backend, op, result, float64(time.Since(start).Microseconds())/1000)
}
