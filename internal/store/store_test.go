package store_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jflaig13/mise-core-sub000/internal/shift"
	"github.com/jflaig13/mise-core-sub000/internal/store"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testRecord() *shift.Record {
	sales := d("400")
	ctx := shift.NewContext(time.Date(2025, 11, 24, 0, 0, 0, 0, time.UTC), shift.PM,
		shift.PayPeriod{ID: "2025-11-17"})
	return &shift.Record{
		ID:      "rec-1",
		Context: ctx,
		Payouts: []shift.Payout{
			{Employee: "Alice Nguyen", Role: shift.RoleServer, Amount: d("180"), FoodSales: &sales},
			{Employee: "Carol Smith", Role: shift.RoleUtility, Amount: d("20")},
		},
		TotalPool:   d("200"),
		TotalTipout: d("20"),
	}
}

func TestJSONLSink_Save(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := store.NewJSONLSink(&buf)
	if err := sink.Save(context.Background(), testRecord()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], `"food_sales":null`) {
		t.Errorf("support row should carry null food_sales: %s", lines[1])
	}

	var row shift.Row
	if err := json.Unmarshal([]byte(lines[0]), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if row.Date != "2025-11-24" || row.ShiftCode != "MPM" || row.Employee != "Alice Nguyen" {
		t.Errorf("row = %+v", row)
	}
	if row.Category != shift.CategoryServer || !row.Amount.Equal(d("180")) {
		t.Errorf("row = %+v", row)
	}
	if row.FoodSales == nil || !row.FoodSales.Equal(d("400")) {
		t.Errorf("food_sales = %v, want 400", row.FoodSales)
	}
}

func TestJSONLSink_ConcurrentSavesDoNotInterleave(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := store.NewJSONLSink(&buf)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sink.Save(context.Background(), testRecord()); err != nil {
				t.Errorf("Save: %v", err)
			}
		}()
	}
	wg.Wait()

	sc := bufio.NewScanner(&buf)
	n := 0
	for sc.Scan() {
		var row shift.Row
		if err := json.Unmarshal(sc.Bytes(), &row); err != nil {
			t.Fatalf("line %d: %v", n, err)
		}
		want := "Alice Nguyen"
		if n%2 == 1 {
			want = "Carol Smith"
		}
		if row.Employee != want {
			t.Fatalf("line %d employee = %s, want %s", n, row.Employee, want)
		}
		n++
	}
	if n != 40 {
		t.Errorf("got %d lines, want 40", n)
	}
}

func TestJSONLSink_CanceledContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.NewJSONLSink(&buf).Save(ctx, testRecord()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Save error = %v, want context.Canceled", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %q after cancellation", buf.String())
	}
}

func TestOpenJSONL_Appends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rows.jsonl")
	for range 2 {
		sink, err := store.OpenJSONL(path)
		if err != nil {
			t.Fatalf("OpenJSONL: %v", err)
		}
		if err := sink.Save(context.Background(), testRecord()); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := sink.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "\n"); got != 4 {
		t.Errorf("file has %d lines, want 4", got)
	}
}
