package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

var contractTable = Table{Name: "Scores", PartitionKey: "EventID", SortKey: "PositionID"}

func slotItem(event, slot string, position int) Item {
	return Item{"EventID": event, "PositionID": slot, "Position": position, "ChestNo": "101"}
}

// testStoreContract runs the behaviour every backend must share.
func testStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("put and get", func(t *testing.T) {
		if err := s.Put(ctx, contractTable, slotItem("EVENT#A", "POS#01", 1)); err != nil {
			t.Fatalf("put: %v", err)
		}
		got, err := s.Get(ctx, contractTable, Key{Partition: "EVENT#A", Sort: "POS#01"})
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if pos, _ := intValue(got, "Position"); pos != 1 {
			t.Errorf("expected position 1, got %v", got["Position"])
		}
		if _, err := s.Get(ctx, contractTable, Key{Partition: "EVENT#A", Sort: "POS#09"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("put must not exist", func(t *testing.T) {
		err := s.Put(ctx, contractTable, slotItem("EVENT#A", "POS#01", 1), MustNotExist())
		if !errors.Is(err, ErrConditionFailed) {
			t.Fatalf("expected ErrConditionFailed, got %v", err)
		}
		if err := s.Put(ctx, contractTable, slotItem("EVENT#A", "POS#02", 2), MustNotExist()); err != nil {
			t.Fatalf("put on a free key: %v", err)
		}
	})

	t.Run("missing key attribute", func(t *testing.T) {
		err := s.Put(ctx, contractTable, Item{"EventID": "EVENT#A"})
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("batch write and prefix query", func(t *testing.T) {
		items := []Item{
			slotItem("EVENT#B", "POS#02", 2),
			slotItem("EVENT#B", "POS#01_1", 1),
			slotItem("EVENT#B", "POS#01", 1),
			{"EventID": "EVENT#B", "PositionID": "METADATA", "TotalWinnersRecorded": 3},
			{"EventID": "EVENT#B", "PositionID": "TEAM#01", "TeamName": "Relay A"},
		}
		unprocessed, err := s.BatchWrite(ctx, contractTable, items)
		if err != nil {
			t.Fatalf("batch write: %v", err)
		}
		if len(unprocessed) != 0 {
			t.Fatalf("expected no unprocessed items, got %d", len(unprocessed))
		}

		positions, err := s.Query(ctx, contractTable, "EVENT#B", "POS#")
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if got := sortKeys(positions); fmt.Sprint(got) != "[POS#01 POS#01_1 POS#02]" {
			t.Errorf("unexpected prefix query order %v", got)
		}

		all, err := s.Query(ctx, contractTable, "EVENT#B", "")
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if got := sortKeys(all); fmt.Sprint(got) != "[METADATA POS#01 POS#01_1 POS#02 TEAM#01]" {
			t.Errorf("unexpected partition order %v", got)
		}
	})

	t.Run("batch ceiling", func(t *testing.T) {
		items := make([]Item, MaxBatchSize+1)
		for i := range items {
			items[i] = slotItem("EVENT#C", fmt.Sprintf("POS#%02d", i+1), i+1)
		}
		if _, err := s.BatchWrite(ctx, contractTable, items); !errors.Is(err, ErrBatchTooLarge) {
			t.Fatalf("expected ErrBatchTooLarge, got %v", err)
		}
		if got, _ := s.Query(ctx, contractTable, "EVENT#C", ""); len(got) != 0 {
			t.Fatalf("rejected batch must not write, found %d items", len(got))
		}
	})

	t.Run("scan with filter", func(t *testing.T) {
		got, err := s.Scan(ctx, contractTable, func(it Item) bool {
			return stringValue(it, "PositionID") == "TEAM#01"
		})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if len(got) != 1 || stringValue(got[0], "TeamName") != "Relay A" {
			t.Fatalf("unexpected scan result %v", got)
		}
	})

	t.Run("update", func(t *testing.T) {
		k := Key{Partition: "EVENT#A", Sort: "POS#01"}
		updated, err := s.Update(ctx, contractTable, k, map[string]any{"ChestNo": "202"}, MustExist())
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if stringValue(updated, "ChestNo") != "202" {
			t.Errorf("expected chest 202, got %v", updated["ChestNo"])
		}
		if pos, _ := intValue(updated, "Position"); pos != 1 {
			t.Errorf("update must keep other attributes, got %v", updated)
		}

		missing := Key{Partition: "EVENT#A", Sort: "POS#07"}
		if _, err := s.Update(ctx, contractTable, missing, map[string]any{"ChestNo": "1"}, MustExist()); !errors.Is(err, ErrConditionFailed) {
			t.Fatalf("expected ErrConditionFailed, got %v", err)
		}
	})

	t.Run("delete with attribute guard", func(t *testing.T) {
		k := Key{Partition: "EVENT#B", Sort: "POS#02"}
		err := s.Delete(ctx, contractTable, k, AttributesEqual(map[string]any{"ChestNo": "999", "Position": 2}))
		if !errors.Is(err, ErrConditionFailed) {
			t.Fatalf("expected ErrConditionFailed, got %v", err)
		}
		if _, err := s.Get(ctx, contractTable, k); err != nil {
			t.Fatalf("failed guard must keep the item: %v", err)
		}
		if err := s.Delete(ctx, contractTable, k, AttributesEqual(map[string]any{"ChestNo": "101", "Position": 2})); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, contractTable, k); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, contractTable, k); err != nil {
			t.Fatalf("unconditional delete of a missing key: %v", err)
		}
		if err := s.Delete(ctx, contractTable, k, MustExist()); !errors.Is(err, ErrConditionFailed) {
			t.Fatalf("expected ErrConditionFailed, got %v", err)
		}
	})
}

func sortKeys(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = stringValue(it, "PositionID")
	}
	return out
}
