package storage

import (
	"bytes"
	"context"
	"testing"
)

func TestWriteThenRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	key, err := store.Write(ctx, "jobs/abc/media.mp4", []byte("payload"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "jobs/abc/media.mp4" {
		t.Fatalf("key = %q", key)
	}

	data, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Fatalf("data = %q", data)
	}
}

func TestWriteRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, err := store.Write(context.Background(), "../escape.txt", []byte("x")); err == nil {
		t.Fatal("expected error for traversal key")
	}
}

func TestReadMissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, err := store.Read(context.Background(), "jobs/missing.bin"); err == nil {
		t.Fatal("expected error for missing key")
	}
}
