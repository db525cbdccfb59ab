package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgerror"
)

func newTestStore(t *testing.T) (*SQLite, *BlobStore) {
	t.Helper()

	dir := t.TempDir()
	blobs, err := NewBlobStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("NewBlobStore() error = %v", err)
	}

	s, err := Open(filepath.Join(dir, "app.db"), blobs)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s, blobs
}

func testDataset(id int64, owner, fileName string) entity.Dataset {
	return entity.Dataset{
		ID:         id,
		Owner:      owner,
		FileName:   fileName,
		UploadedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute),
		BlobKey:    fmt.Sprintf("blob-%d.csv", id),
		Summary: entity.Summary{
			TotalRows: 2,
			Averages: []entity.FieldAverage{
				{Field: entity.FieldCapacity, Value: 510.0},
				{Field: entity.FieldPressure, Value: 15.8},
				{Field: entity.FieldTemperature, Value: 82.0},
			},
			TypeCounts: []entity.TypeCount{
				{Type: "Reactor", Count: 1},
				{Type: "Pump", Count: 1},
			},
		},
	}
}

func TestSQLite_AppendAndCurrent(t *testing.T) {
	s, blobs := newTestStore(t)
	ctx := context.Background()

	dataset := testDataset(1, "u1", "equipment.csv")
	evicted, err := s.Append(ctx, dataset, []byte("csv-bytes"))
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(evicted) != 0 {
		t.Errorf("evicted = %v, want none", evicted)
	}

	if !blobs.Exists(dataset.BlobKey) {
		t.Error("blob file missing after append")
	}

	current, err := s.Current(ctx, "u1")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if current.ID != 1 || current.Seq != 1 || current.FileName != "equipment.csv" {
		t.Errorf("current = %+v", current)
	}
	if !current.UploadedAt.Equal(dataset.UploadedAt) {
		t.Errorf("UploadedAt = %v, want %v", current.UploadedAt, dataset.UploadedAt)
	}
	if current.Summary.TotalRows != 2 || len(current.Summary.Averages) != 3 {
		t.Errorf("summary round trip = %+v", current.Summary)
	}
}

func TestSQLite_CurrentEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Current(context.Background(), "u1")
	if !errors.Is(err, pkgerror.ErrNotFound) {
		t.Fatalf("Current() on empty store error = %v, want ErrNotFound", err)
	}
}

func TestSQLite_EvictsBeyondCapacity(t *testing.T) {
	s, blobs := newTestStore(t)
	ctx := context.Background()

	var allEvicted []entity.Dataset
	for i := 1; i <= entity.HistoryCapacity+1; i++ {
		evicted, err := s.Append(ctx, testDataset(int64(i), "u1", fmt.Sprintf("f%d.csv", i)), []byte("x"))
		if err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
		allEvicted = append(allEvicted, evicted...)
	}

	if len(allEvicted) != 1 {
		t.Fatalf("evicted %d datasets, want 1", len(allEvicted))
	}
	if allEvicted[0].Seq != 1 {
		t.Errorf("evicted seq = %d, want the oldest (1)", allEvicted[0].Seq)
	}
	if allEvicted[0].BlobKey != "blob-1.csv" {
		t.Errorf("evicted blob key = %q", allEvicted[0].BlobKey)
	}

	datasets, err := s.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(datasets) != entity.HistoryCapacity {
		t.Fatalf("history length = %d, want %d", len(datasets), entity.HistoryCapacity)
	}

	// Most recent first; the oldest surviving entry is seq 2.
	if datasets[0].Seq != entity.HistoryCapacity+1 {
		t.Errorf("first seq = %d, want %d", datasets[0].Seq, entity.HistoryCapacity+1)
	}
	if datasets[len(datasets)-1].Seq != 2 {
		t.Errorf("last seq = %d, want 2", datasets[len(datasets)-1].Seq)
	}

	// Eviction does not remove the blob; that happens asynchronously.
	if !blobs.Exists("blob-1.csv") {
		t.Error("evicted blob removed synchronously")
	}
}

func TestSQLite_ListOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if _, err := s.Append(ctx, testDataset(int64(i), "u1", fmt.Sprintf("f%d.csv", i)), []byte("x")); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	datasets, err := s.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	for i := 1; i < len(datasets); i++ {
		if datasets[i-1].Seq <= datasets[i].Seq {
			t.Fatalf("list not in descending seq order: %+v", datasets)
		}
	}
}

func TestSQLite_OwnersAreIsolated(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Append(ctx, testDataset(1, "u1", "a.csv"), []byte("x")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if _, err := s.Append(ctx, testDataset(2, "u2", "b.csv"), []byte("x")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	u1, err := s.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List(u1) error = %v", err)
	}
	if len(u1) != 1 || u1[0].FileName != "a.csv" {
		t.Errorf("u1 history = %+v", u1)
	}

	// Sequences are per owner, both start at 1.
	u2, err := s.List(ctx, "u2")
	if err != nil {
		t.Fatalf("List(u2) error = %v", err)
	}
	if len(u2) != 1 || u2[0].Seq != 1 {
		t.Errorf("u2 history = %+v", u2)
	}
}

func TestSQLite_Clear(t *testing.T) {
	s, blobs := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if _, err := s.Append(ctx, testDataset(int64(i), "u1", fmt.Sprintf("f%d.csv", i)), []byte("x")); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
	if _, err := s.Append(ctx, testDataset(9, "u2", "keep.csv"), []byte("x")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := s.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if _, err := s.Current(ctx, "u1"); !errors.Is(err, pkgerror.ErrNotFound) {
		t.Errorf("Current() after clear error = %v, want ErrNotFound", err)
	}
	for i := 1; i <= 3; i++ {
		if blobs.Exists(fmt.Sprintf("blob-%d.csv", i)) {
			t.Errorf("blob-%d.csv still exists after clear", i)
		}
	}

	// Other owners are untouched.
	if _, err := s.Current(ctx, "u2"); err != nil {
		t.Errorf("Current(u2) error = %v", err)
	}
	if !blobs.Exists("blob-9.csv") {
		t.Error("u2 blob removed by u1 clear")
	}

	// Clearing again is a no-op.
	if err := s.Clear(ctx, "u1"); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestBlobStore_SaveRemove(t *testing.T) {
	blobs, err := NewBlobStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("NewBlobStore() error = %v", err)
	}

	if err := blobs.Save("k.csv", []byte("data")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !blobs.Exists("k.csv") {
		t.Error("blob missing after save")
	}

	if err := blobs.Remove("k.csv"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if blobs.Exists("k.csv") {
		t.Error("blob still exists after remove")
	}

	if err := blobs.Remove("k.csv"); err != nil {
		t.Errorf("Remove() of missing blob error = %v, want nil", err)
	}
}

func TestBlobStore_FlattensKeyPath(t *testing.T) {
	dir := t.TempDir()
	blobs, err := NewBlobStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("NewBlobStore() error = %v", err)
	}

	if err := blobs.Save("../escape.csv", []byte("data")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !blobs.Exists("escape.csv") {
		t.Error("key was not flattened to its basename")
	}
}
