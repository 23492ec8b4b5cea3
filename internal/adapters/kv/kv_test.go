package kv_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/imagecatalog/internal/adapters/kv"
	. "github.com/smartystreets/goconvey/convey"
)

func names(keys []kv.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Name
	}
	return out
}

// namespaceContract runs the behaviour every backend must share.
func namespaceContract(ctx context.Context, ns interface {
	kv.Namespace
	kv.Writer
}) {
	So(ns.Put(ctx, "linux-ubuntu22", []byte(`{"status":"Success","url":"https://example.com/u.img"}`), []byte(`{"release":"22.04","arch":"x86_64"}`)), ShouldBeNil)
	So(ns.Put(ctx, "linux-arch", []byte(`{"status":"Failure","error":"gone"}`), nil), ShouldBeNil)
	So(ns.Put(ctx, "linuxmint-21", []byte(`{"status":"Success","url":"https://example.com/m.iso"}`), []byte(`{"release":"21","arch":"x86_64"}`)), ShouldBeNil)
	So(ns.Put(ctx, "windows-11", []byte(`{"status":"Success","url":"https://example.com/w.iso"}`), nil), ShouldBeNil)

	Convey("Then Get should return stored values", func() {
		v, err := ns.Get(ctx, "linux-arch")
		So(err, ShouldBeNil)
		So(string(v), ShouldEqual, `{"status":"Failure","error":"gone"}`)
	})

	Convey("And Get should report missing keys as not found", func() {
		_, err := ns.Get(ctx, "linux-missing")
		So(kv.IsNotFound(err), ShouldBeTrue)
	})

	Convey("And List should return only prefixed keys in order", func() {
		keys, err := ns.List(ctx, "linux-")
		So(err, ShouldBeNil)
		So(names(keys), ShouldResemble, []string{"linux-arch", "linux-ubuntu22"})
		So(keys[0].Metadata, ShouldBeNil)
		So(string(keys[1].Metadata), ShouldEqual, `{"release":"22.04","arch":"x86_64"}`)
	})

	Convey("And List should return nothing for an unknown prefix", func() {
		keys, err := ns.List(ctx, "bsd-")
		So(err, ShouldBeNil)
		So(keys, ShouldBeEmpty)
	})

	Convey("And Put should replace existing records", func() {
		So(ns.Put(ctx, "linux-arch", []byte(`{"status":"Success","url":"https://example.com/a.iso"}`), []byte(`{"release":"rolling","arch":"x86_64"}`)), ShouldBeNil)
		v, err := ns.Get(ctx, "linux-arch")
		So(err, ShouldBeNil)
		So(string(v), ShouldContainSubstring, "a.iso")
		keys, err := ns.List(ctx, "linux-")
		So(err, ShouldBeNil)
		So(len(keys), ShouldEqual, 2)
	})
}

func TestMemoryNamespace(t *testing.T) {
	Convey("Given an in-memory namespace", t, func() {
		ctx := context.Background()
		ns := kv.NewMemoryNamespace()

		Convey("When records are stored", func() {
			namespaceContract(ctx, ns)
		})

		Convey("When the namespace is closed", func() {
			So(ns.Close(), ShouldBeNil)

			Convey("Then reads should fail", func() {
				_, err := ns.Get(ctx, "x")
				So(errors.Is(err, kv.ErrClosed), ShouldBeTrue)
				_, err = ns.List(ctx, "x")
				So(errors.Is(err, kv.ErrClosed), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then reads should return the context error", func() {
				_, err := ns.Get(cctx, "x")
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When a key has metadata but no value", func() {
			So(ns.Put(ctx, "linux-meta", nil, []byte(`{"release":"1","arch":"x"}`)), ShouldBeNil)

			Convey("Then it should list but not resolve", func() {
				keys, err := ns.List(ctx, "linux-")
				So(err, ShouldBeNil)
				So(names(keys), ShouldResemble, []string{"linux-meta"})
				_, err = ns.Get(ctx, "linux-meta")
				So(kv.IsNotFound(err), ShouldBeTrue)
			})
		})
	})
}

func TestSQLiteNamespace(t *testing.T) {
	Convey("Given a SQLite namespace", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "catalog.db")
		ns, err := kv.OpenSQLite(ctx, path, "worker-dynamic-quickemu")
		So(err, ShouldBeNil)
		defer func() { _ = ns.Close() }()

		Convey("When records are stored", func() {
			namespaceContract(ctx, ns)
		})

		Convey("When another namespace shares the database", func() {
			other, err := kv.OpenSQLite(ctx, path, "other")
			So(err, ShouldBeNil)
			defer func() { _ = other.Close() }()
			So(other.Put(ctx, "linux-hidden", []byte(`{}`), nil), ShouldBeNil)

			Convey("Then its keys should stay invisible", func() {
				keys, err := ns.List(ctx, "linux-")
				So(err, ShouldBeNil)
				So(keys, ShouldBeEmpty)
				_, err = ns.Get(ctx, "linux-hidden")
				So(kv.IsNotFound(err), ShouldBeTrue)
			})
		})

		Convey("When listing with an empty prefix", func() {
			So(ns.Put(ctx, "a-1", []byte(`{}`), nil), ShouldBeNil)
			So(ns.Put(ctx, "b-1", []byte(`{}`), nil), ShouldBeNil)

			Convey("Then every key should be returned", func() {
				keys, err := ns.List(ctx, "")
				So(err, ShouldBeNil)
				So(names(keys), ShouldResemble, []string{"a-1", "b-1"})
			})
		})
	})
}

func TestSeed(t *testing.T) {
	Convey("Given a seed file", t, func() {
		ctx := context.Background()

		Convey("When reading a valid file", func() {
			entries, err := kv.ReadSeed(filepath.Join("testdata", "seed.yaml"))

			Convey("Then every entry should be parsed", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 4)
				So(entries[0].Key, ShouldEqual, "linux-ubuntu22")
				So(entries[0].Value["url"], ShouldEqual, "https://example.com/ubuntu.img")
				So(entries[2].Metadata, ShouldBeNil)
			})
		})

		Convey("When seeding a memory namespace", func() {
			ns := kv.NewMemoryNamespace()
			n, err := kv.SeedFile(ctx, ns, filepath.Join("testdata", "seed.yaml"))

			Convey("Then values and metadata should be stored as JSON", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)
				all, err := ns.List(ctx, "")
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 4)

				v, err := ns.Get(ctx, "linux-ubuntu22")
				So(err, ShouldBeNil)
				var value map[string]string
				So(json.Unmarshal(v, &value), ShouldBeNil)
				So(value["status"], ShouldEqual, "Success")

				keys, err := ns.List(ctx, "linux-")
				So(err, ShouldBeNil)
				So(names(keys), ShouldResemble, []string{"linux-broken", "linux-fedora40", "linux-ubuntu22"})
				So(keys[0].Metadata, ShouldBeNil)

				var md map[string]any
				So(json.Unmarshal(keys[2].Metadata, &md), ShouldBeNil)
				So(md["release"], ShouldEqual, "22.04")
				So(md["edition"], ShouldBeNil)
			})
		})

		Convey("When an entry has no key", func() {
			_, err := kv.ReadSeed(filepath.Join("testdata", "bad_seed.yaml"))

			Convey("Then reading should fail", func() {
				So(errors.Is(err, kv.ErrSeed), ShouldBeTrue)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := kv.ReadSeed(filepath.Join("testdata", "missing.yaml"))

			Convey("Then reading should fail", func() {
				So(errors.Is(err, kv.ErrSeed), ShouldBeTrue)
			})
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given backend options", t, func() {
		ctx := context.Background()

		Convey("When the backend is memory", func() {
			ns, err := kv.Open(ctx, kv.Options{Backend: kv.BackendMemory, Namespace: "ns"})

			Convey("Then an instrumented memory namespace should be returned", func() {
				So(err, ShouldBeNil)
				inst, ok := ns.(*kv.Instrumented)
				So(ok, ShouldBeTrue)
				_, isMem := inst.Unwrap().(*kv.MemoryNamespace)
				So(isMem, ShouldBeTrue)

				So(inst.Put(ctx, "a-b", []byte(`{}`), nil), ShouldBeNil)
				v, err := ns.Get(ctx, "a-b")
				So(err, ShouldBeNil)
				So(string(v), ShouldEqual, `{}`)
			})
		})

		Convey("When the backend is sqlite", func() {
			ns, err := kv.Open(ctx, kv.Options{Backend: kv.BackendSQLite, Namespace: "ns", SQLitePath: filepath.Join(t.TempDir(), "kv.db")})

			Convey("Then a working namespace should be returned", func() {
				So(err, ShouldBeNil)
				defer func() { _ = ns.Close() }()
				_, err := ns.Get(ctx, "nope")
				So(kv.IsNotFound(err), ShouldBeTrue)
			})
		})

		Convey("When the backend is unknown", func() {
			_, err := kv.Open(ctx, kv.Options{Backend: "etcd"})

			Convey("Then it should fail", func() {
				So(errors.Is(err, kv.ErrUnknownBackend), ShouldBeTrue)
			})
		})
	})
}

func TestNotFoundError(t *testing.T) {
	Convey("Given a not found error", t, func() {
		err := kv.NotFoundError{Key: "linux-x"}

		Convey("Then it should name the key and unwrap to ErrNotFound", func() {
			So(err.Error(), ShouldEqual, "linux-x: key not found")
			So(kv.IsNotFound(err), ShouldBeTrue)
			So(kv.NotFoundError{}.Error(), ShouldEqual, "key not found")
		})
	})
}
