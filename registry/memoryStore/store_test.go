package memoryStore

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	// Test Put - should compute a content-addressed key
	t.Run("Put", func(t *testing.T) {
		t.Parallel()

		store := New()
		content := []byte("crate tarball content")

		key, err := store.Put(context.Background(), content)
		if err != nil {
			t.Fatalf("Failed to store object: %v", err)
		}

		if key == "" {
			t.Error("Object key was not generated")
		}
		if len(key) != 64 { // SHA256 hex string should be 64 characters
			t.Errorf("Expected object key length 64, got %d", len(key))
		}

		if count := store.Count(); count != 1 {
			t.Errorf("Expected 1 object in store, got %d", count)
		}
	})

	// Test Get - should retrieve the exact same content
	t.Run("Get", func(t *testing.T) {
		t.Parallel()

		store := New()
		content := []byte("crate tarball content")

		key, err := store.Put(context.Background(), content)
		if err != nil {
			t.Fatalf("Failed to store object: %v", err)
		}

		retrieved, err := store.Get(context.Background(), key)
		if err != nil {
			t.Fatalf("Failed to get object: %v", err)
		}

		if !bytes.Equal(retrieved, content) {
			t.Errorf(
				"Content mismatch. Expected: %q, Got: %q",
				string(content),
				string(retrieved),
			)
		}
	})

	// Test Get with non-existent key - should return error
	t.Run("GetNonExistent", func(t *testing.T) {
		t.Parallel()

		store := New()

		nonExistentKey := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
		_, err := store.Get(context.Background(), nonExistentKey)
		if err == nil {
			t.Error("Expected error when getting non-existent object, but got none")
		}
		if !errors.Is(err, ErrObjectNotFound) {
			t.Errorf("Expected ErrObjectNotFound, got: %v", err)
		}
	})

	// Test that identical content stores under the same key
	t.Run("ContentAddressing", func(t *testing.T) {
		t.Parallel()

		store := New()
		content := []byte("crate tarball content")

		key1, err := store.Put(context.Background(), content)
		if err != nil {
			t.Fatalf("Failed to store object: %v", err)
		}

		key2, err := store.Put(context.Background(), content)
		if err != nil {
			t.Fatalf("Failed to store object: %v", err)
		}

		if key1 != key2 {
			t.Errorf("Expected identical keys for identical content, got %q and %q", key1, key2)
		}
		if count := store.Count(); count != 1 {
			t.Errorf("Expected 1 object in store, got %d", count)
		}

		key3, err := store.Put(context.Background(), []byte("different content"))
		if err != nil {
			t.Fatalf("Failed to store object: %v", err)
		}

		if key3 == key1 {
			t.Error("Expected different keys for different content")
		}
	})

	// Test Delete
	t.Run("Delete", func(t *testing.T) {
		t.Parallel()

		store := New()

		key, err := store.Put(context.Background(), []byte("crate tarball content"))
		if err != nil {
			t.Fatalf("Failed to store object: %v", err)
		}

		if err := store.Delete(context.Background(), key); err != nil {
			t.Fatalf("Failed to delete object: %v", err)
		}

		if _, err := store.Get(context.Background(), key); !errors.Is(err, ErrObjectNotFound) {
			t.Errorf("Expected ErrObjectNotFound after delete, got: %v", err)
		}

		if err := store.Delete(context.Background(), key); !errors.Is(err, ErrObjectNotFound) {
			t.Errorf("Expected ErrObjectNotFound on double delete, got: %v", err)
		}
	})

	// Test that returned content is a copy
	t.Run("ReturnsCopy", func(t *testing.T) {
		t.Parallel()

		store := New()
		content := []byte("crate tarball content")

		key, err := store.Put(context.Background(), content)
		if err != nil {
			t.Fatalf("Failed to store object: %v", err)
		}

		retrieved, err := store.Get(context.Background(), key)
		if err != nil {
			t.Fatalf("Failed to get object: %v", err)
		}

		retrieved[0] = 'X'

		again, err := store.Get(context.Background(), key)
		if err != nil {
			t.Fatalf("Failed to get object: %v", err)
		}

		if !bytes.Equal(again, content) {
			t.Error("Stored content was mutated through a returned slice")
		}
	})
}
