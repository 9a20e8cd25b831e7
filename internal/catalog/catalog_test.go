package catalog

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	first, err := store.Record(ctx, Entry{
		RunID: "r1", BatchID: "b1", Array: "temps", Operation: OperationEncode,
		Status: StatusSucceeded, Container: "temps.mkv", OriginalBytes: 96,
		CompressedBytes: 48, CompressionRatio: 2, BitsPerSample: 4,
		Duration: 1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if first.ID == 0 || first.RecordedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", first)
	}
	if _, err := store.Record(ctx, Entry{
		RunID: "r1", BatchID: "b1", Array: "bad", Operation: OperationEncode,
		Status: StatusSkipped, ErrorLabel: "invalid_range", Message: "max < min",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Record(ctx, Entry{RunID: "r2", BatchID: "other", Array: "x", Operation: OperationEncode, Status: StatusSucceeded}); err != nil {
		t.Fatal(err)
	}

	entries, err := store.List(ctx, "b1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	got := entries[0]
	if got.Array != "temps" || got.Container != "temps.mkv" || got.Duration != 1500*time.Millisecond || got.CompressionRatio != 2 {
		t.Fatalf("unexpected first entry %+v", got)
	}
	if entries[1].ErrorLabel != "invalid_range" || entries[1].Container != "" {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries overall, got %d", len(all))
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Record(ctx, Entry{RunID: "r", BatchID: "b", Array: "a", Operation: OperationDecode, Status: StatusSucceeded}); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	entries, err := reopened.List(ctx, "b")
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d (%v)", len(entries), err)
	}
}

func TestRecordRequiresIdentity(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, err := store.Record(context.Background(), Entry{Array: "a"}); err == nil {
		t.Fatal("expected error without batch id")
	}
}

func TestLatest(t *testing.T) {
	entries := []Entry{
		{ID: 1, Array: "a", Operation: OperationEncode, Status: StatusFailed},
		{ID: 2, Array: "b", Operation: OperationEncode, Status: StatusSucceeded},
		{ID: 3, Array: "a", Operation: OperationEncode, Status: StatusSucceeded},
		{ID: 4, Array: "a", Operation: OperationDecode, Status: StatusSucceeded},
	}
	latest := Latest(entries)
	if len(latest) != 3 {
		t.Fatalf("expected 3 latest entries, got %d", len(latest))
	}
	if latest[0].ID != 3 || latest[1].ID != 2 || latest[2].ID != 4 {
		t.Fatalf("unexpected order %+v", latest)
	}
}

func TestRetryOnBusy(t *testing.T) {
	attempts := 0
	err := retryOnBusy(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("SQLITE_BUSY: database is locked")
		}
		return nil
	})
	if err != nil || attempts != 3 {
		t.Fatalf("expected success after 3 attempts, got %d (%v)", attempts, err)
	}

	attempts = 0
	err = retryOnBusy(context.Background(), func() error {
		attempts++
		return errors.New("constraint failed")
	})
	if err == nil || attempts != 1 {
		t.Fatalf("expected immediate failure, got %d attempts (%v)", attempts, err)
	}
}
