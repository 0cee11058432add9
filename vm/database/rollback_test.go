// Copyright 2025 The clarinet-go Authors
// This file is part of the clarinet-go library.
//
// The clarinet-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The clarinet-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the clarinet-go library. If not, see <http://www.gnu.org/licenses/>.

package database

import (
	"errors"
	"testing"

	"github.com/hirosystems/clarinet-sub006/vm/datastore"
)

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s must panic", name)
		}
	}()
	fn()
}

func wrapperGet(t *testing.T, w *RollbackWrapper, key string) (string, bool) {
	t.Helper()
	v, ok, err := w.GetValue(key)
	if err != nil {
		t.Fatalf("GetValue(%s): %v", key, err)
	}
	return v, ok
}

func TestRollbackWrapperCommitFlushes(t *testing.T) {
	store := datastore.NewMemoryStore()
	w := NewRollbackWrapper(store)

	w.NestedBegin()
	w.SetValue("k", "v")
	if v, ok := wrapperGet(t, w, "k"); !ok || v != "v" {
		t.Fatal("a frame must observe its own pending write")
	}
	if _, ok, _ := store.Get("k"); ok {
		t.Fatal("pending write must not reach the store")
	}
	if err := w.NestedCommit(); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := store.Get("k"); !ok || v != "v" {
		t.Error("outermost commit must flush to the store")
	}
}

func TestRollbackWrapperRollbackDiscards(t *testing.T) {
	store := datastore.NewMemoryStore()
	w := NewRollbackWrapper(store)

	w.NestedBegin()
	w.SetValue("outer", "1")

	w.NestedBegin()
	w.SetValue("inner", "2")
	w.SetValue("outer", "overwritten")
	w.NestedRollback()

	if _, ok := wrapperGet(t, w, "inner"); ok {
		t.Error("rolled-back write must vanish")
	}
	if v, _ := wrapperGet(t, w, "outer"); v != "1" {
		t.Errorf("outer frame read %q after inner rollback", v)
	}
	if err := w.NestedCommit(); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := store.Get("outer"); v != "1" {
		t.Errorf("store holds %q after commit", v)
	}
	if _, ok, _ := store.Get("inner"); ok {
		t.Error("rolled-back write reached the store")
	}
}

func TestRollbackWrapperNestedCommitFolds(t *testing.T) {
	store := datastore.NewMemoryStore()
	w := NewRollbackWrapper(store)

	w.NestedBegin()
	w.NestedBegin()
	w.SetValue("k", "inner")
	if err := w.NestedCommit(); err != nil {
		t.Fatal(err)
	}
	// Folded into the parent, still not in the store.
	if v, ok := wrapperGet(t, w, "k"); !ok || v != "inner" {
		t.Error("parent must observe the folded write")
	}
	if _, ok, _ := store.Get("k"); ok {
		t.Error("inner commit must not flush a non-outermost frame")
	}
	w.NestedRollback()
	if _, ok := wrapperGet(t, w, "k"); ok {
		t.Error("rolling back the parent discards folded writes")
	}
}

func TestRollbackWrapperInnermostWins(t *testing.T) {
	store := datastore.NewMemoryStore()
	store.PutAll([]datastore.KV{{Key: "k", Value: "stored"}})
	w := NewRollbackWrapper(store)

	if v, _ := wrapperGet(t, w, "k"); v != "stored" {
		t.Fatal("reads with no open frame fall through to the store")
	}
	w.NestedBegin()
	w.SetValue("k", "outer")
	w.NestedBegin()
	if v, _ := wrapperGet(t, w, "k"); v != "outer" {
		t.Error("inner frame must see the outer pending write")
	}
	w.SetValue("k", "inner")
	if v, _ := wrapperGet(t, w, "k"); v != "inner" {
		t.Error("innermost pending write must win")
	}
}

func TestRollbackWrapperLifecyclePanics(t *testing.T) {
	w := NewRollbackWrapper(datastore.NewMemoryStore())
	mustPanic(t, "SetValue without frame", func() { w.SetValue("k", "v") })
	mustPanic(t, "NestedCommit without frame", func() { w.NestedCommit() })
	mustPanic(t, "NestedRollback without frame", func() { w.NestedRollback() })
	mustPanic(t, "InsertMetadata without frame", func() { w.InsertMetadata("c", "k", "v") })

	w.NestedBegin()
	w.NestedBegin()
	mustPanic(t, "CommitMinedBlock at depth 2", func() { w.CommitMinedBlock() })
}

func TestRollbackWrapperMetadataWriteOnce(t *testing.T) {
	store := datastore.NewMemoryStore()
	w := NewRollbackWrapper(store)

	w.NestedBegin()
	if err := w.InsertMetadata("c", "k", "v"); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := w.GetMetadata("c", "k"); !ok || v != "v" {
		t.Fatal("pending metadata must be readable")
	}
	mustPanic(t, "pending metadata rewrite", func() { w.InsertMetadata("c", "k", "other") })
	if err := w.NestedCommit(); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := store.GetMetadata("c", "k"); !ok || v != "v" {
		t.Error("metadata must flush on outermost commit")
	}

	w.NestedBegin()
	mustPanic(t, "persisted metadata rewrite", func() { w.InsertMetadata("c", "k", "other") })
}

func TestRollbackWrapperMetadataStoreError(t *testing.T) {
	store := datastore.NewMemoryStore()
	w := NewRollbackWrapper(store)
	w.NestedBegin()
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// A store failure during the presence check surfaces as an error, not
	// a rewrite panic, and the write is not recorded.
	if err := w.InsertMetadata("c", "k", "v"); !errors.Is(err, datastore.ErrClosed) {
		t.Fatalf("InsertMetadata err = %v, want ErrClosed", err)
	}
	if _, ok, err := w.GetMetadata("c", "k"); ok || !errors.Is(err, datastore.ErrClosed) {
		t.Errorf("failed insert left a pending entry: ok=%v err=%v", ok, err)
	}
}

func TestRollbackWrapperMetadataRollback(t *testing.T) {
	store := datastore.NewMemoryStore()
	w := NewRollbackWrapper(store)

	w.NestedBegin()
	if err := w.InsertMetadata("c", "k", "v"); err != nil {
		t.Fatal(err)
	}
	w.NestedRollback()
	if _, ok, _ := store.GetMetadata("c", "k"); ok {
		t.Fatal("rolled-back metadata reached the store")
	}
	// The name is free again after the rollback.
	w.NestedBegin()
	if err := w.InsertMetadata("c", "k", "second"); err != nil {
		t.Fatal(err)
	}
	if err := w.NestedCommit(); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := store.GetMetadata("c", "k"); v != "second" {
		t.Errorf("store holds %q", v)
	}
}

func TestCommitMinedBlockDropsMetadata(t *testing.T) {
	store := datastore.NewMemoryStore()
	if err := store.InsertMetadata("c", "k", "already-persisted"); err != nil {
		t.Fatal(err)
	}
	w := NewRollbackWrapper(store)

	w.NestedBegin()
	w.SetValue("data", "v")
	if err := w.CommitMinedBlock(); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := store.Get("data"); !ok || v != "v" {
		t.Error("mined-block commit must flush data edits")
	}
	if v, _, _ := store.GetMetadata("c", "k"); v != "already-persisted" {
		t.Error("mined-block commit must leave persisted metadata alone")
	}
	if w.Depth() != 0 {
		t.Errorf("depth = %d after mined-block commit", w.Depth())
	}
}
