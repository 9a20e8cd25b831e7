package table

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"videotable/internal/services"
	"videotable/internal/tensor"
)

func TestSelectRowMajorAndKind(t *testing.T) {
	tbl, err := New(
		Column{Name: "a", Kind: tensor.Int, Values: []float64{1, 2}},
		Column{Name: "b", Kind: tensor.Float, Values: []float64{0.5, 1.5}},
		Column{Name: "c", Kind: tensor.Int, Values: []float64{7, 8}},
	)
	if err != nil {
		t.Fatal(err)
	}
	data, kind, err := tbl.Select([]string{"c", "a"})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{7, 1, 8, 2}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("data = %v, want %v", data, want)
		}
	}
	if kind != tensor.Int {
		t.Fatalf("kind = %v, want int", kind)
	}
	if _, kind, _ = tbl.Select([]string{"a", "b"}); kind != tensor.Float {
		t.Fatalf("mixed selection kind = %v, want float", kind)
	}
}

func TestSelectMissingColumn(t *testing.T) {
	tbl, _ := New(Column{Name: "a", Values: []float64{1}})
	if _, _, err := tbl.Select([]string{"a", "zz"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := tbl.Select(nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := New(
		Column{Name: "a", Values: []float64{1, 2}},
		Column{Name: "b", Values: []float64{1}},
	)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := New(Column{Name: "a"}, Column{Name: "a"}); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestFromRows(t *testing.T) {
	tbl, err := FromRows([]string{"x", "y"}, []float64{1, 2, 3, 4, 5, 6}, tensor.Float)
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", tbl.Rows())
	}
	y, _ := tbl.Column("y")
	if y.Values[0] != 2 || y.Values[2] != 6 {
		t.Fatalf("unexpected y column %v", y.Values)
	}
	if _, err := FromRows([]string{"x", "y"}, []float64{1, 2, 3}, tensor.Float); err == nil {
		t.Fatal("expected error for uneven data")
	}
}

func TestSQLiteStoreRoundTripKeepsKindsAndNulls(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "table.db")
	store := NewSQLiteStore()
	in, err := New(
		Column{Name: "count", Kind: tensor.Int, Values: []float64{1, math.NaN(), 3.4}},
		Column{Name: "temp \"c\"", Kind: tensor.Float, Values: []float64{0.25, -1, math.NaN()}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(ctx, in, path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := store.Read(ctx, path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := out.Names(); len(got) != 2 || got[0] != "count" || got[1] != "temp \"c\"" {
		t.Fatalf("names = %v", got)
	}
	count, _ := out.Column("count")
	if count.Kind != tensor.Int {
		t.Fatalf("count kind = %v, want int", count.Kind)
	}
	if count.Values[0] != 1 || !math.IsNaN(count.Values[1]) || count.Values[2] != 3 {
		t.Fatalf("count values = %v", count.Values)
	}
	temp, _ := out.Column("temp \"c\"")
	if temp.Kind != tensor.Float || temp.Values[0] != 0.25 || temp.Values[1] != -1 || !math.IsNaN(temp.Values[2]) {
		t.Fatalf("temp column = %+v", temp)
	}

	// Writing again replaces the file rather than appending.
	if err := store.Write(ctx, in, path); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	again, err := store.Read(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Rows() != 3 {
		t.Fatalf("rows after rewrite = %d, want 3", again.Rows())
	}
}

func TestSQLiteStoreReadMissing(t *testing.T) {
	_, err := NewSQLiteStore().Read(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSQLiteStoreCustomTableName(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "t.db")
	store := &SQLiteStore{TableName: "frames"}
	in, _ := New(Column{Name: "v", Kind: tensor.Float, Values: []float64{1}})
	if err := store.Write(ctx, in, path); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSQLiteStore().Read(ctx, path); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected default table lookup to miss, got %v", err)
	}
	if _, err := store.Read(ctx, path); err != nil {
		t.Fatalf("Read custom table: %v", err)
	}
}
