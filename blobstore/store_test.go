package blobstore

import (
	"context"
	"errors"
	"testing"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(t.TempDir()),
	}
}

func TestStorePutGetDelete(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get missing: err=%v", err)
			}

			if err := s.Put(ctx, "a/b", []byte("one")); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, err := s.Get(ctx, "a/b")
			if err != nil || string(got) != "one" {
				t.Fatalf("Get: %q err=%v", got, err)
			}

			// Overwrite is atomic replace.
			if err := s.Put(ctx, "a/b", []byte("two")); err != nil {
				t.Fatalf("Put overwrite failed: %v", err)
			}
			got, _ = s.Get(ctx, "a/b")
			if string(got) != "two" {
				t.Fatalf("Get after overwrite: %q", got)
			}

			if err := s.Delete(ctx, "a/b"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := s.Get(ctx, "a/b"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get after delete: err=%v", err)
			}
			// Deleting again is fine.
			if err := s.Delete(ctx, "a/b"); err != nil {
				t.Fatalf("second Delete failed: %v", err)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, n := range []string{"snap/1", "snap/2", "other/1"} {
				if err := s.Put(ctx, n, []byte("x")); err != nil {
					t.Fatalf("Put %s failed: %v", n, err)
				}
			}

			names, err := s.List(ctx, "snap/")
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(names) != 2 || names[0] != "snap/1" || names[1] != "snap/2" {
				t.Fatalf("List: %v", names)
			}

			all, err := s.List(ctx, "")
			if err != nil || len(all) != 3 {
				t.Fatalf("List all: %v err=%v", all, err)
			}
		})
	}
}
