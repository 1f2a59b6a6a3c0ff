// Package repository defines the document store used by every sportsmeet
// table, its backends (memory, Redis, DynamoDB) and the typed repositories
// built on top of it.
package repository

import (
	"context"
	"fmt"
)

// MaxBatchSize is the largest number of items one BatchWrite accepts.
const MaxBatchSize = 25

// Item is one stored document. Values are strings, bools, numbers or nil.
type Item map[string]any

// Clone returns a shallow copy of the item.
func (it Item) Clone() Item {
	if it == nil {
		return nil
	}
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

// Table names a table and its key attributes. SortKey is empty for tables
// keyed by partition only.
type Table struct {
	Name         string
	PartitionKey string
	SortKey      string
}

// Key addresses a single item.
type Key struct {
	Partition string
	Sort      string
}

func (k Key) String() string {
	if k.Sort == "" {
		return k.Partition
	}
	return k.Partition + "/" + k.Sort
}

// KeyOf extracts the key of item for table t.
func (t Table) KeyOf(item Item) (Key, error) {
	pk, ok := item[t.PartitionKey].(string)
	if !ok || pk == "" {
		return Key{}, fmt.Errorf("%w: %s: missing %s", ErrInvalidKey, t.Name, t.PartitionKey)
	}
	k := Key{Partition: pk}
	if t.SortKey != "" {
		sk, ok := item[t.SortKey].(string)
		if !ok || sk == "" {
			return Key{}, fmt.Errorf("%w: %s: missing %s", ErrInvalidKey, t.Name, t.SortKey)
		}
		k.Sort = sk
	}
	return k, nil
}

// keyItem returns the key attributes of k as an item.
func (t Table) keyItem(k Key) Item {
	it := Item{t.PartitionKey: k.Partition}
	if t.SortKey != "" {
		it[t.SortKey] = k.Sort
	}
	return it
}

func (t Table) validKey(k Key) error {
	if k.Partition == "" || (t.SortKey != "" && k.Sort == "") {
		return fmt.Errorf("%w: %s: incomplete key %q", ErrInvalidKey, t.Name, k.String())
	}
	return nil
}

// Filter selects items during a scan. Filters run client side.
type Filter func(Item) bool

// Store is a key/value document store with conditional single-item writes,
// partition queries, scans and bounded batch writes. None of the operations
// span more than one item atomically.
type Store interface {
	// Put writes item, replacing any existing item with the same key.
	Put(ctx context.Context, t Table, item Item, conds ...Condition) error

	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, t Table, k Key) (Item, error)

	// Query returns the items of one partition whose sort key starts with
	// sortPrefix, ordered by sort key.
	Query(ctx context.Context, t Table, partition, sortPrefix string) ([]Item, error)

	// Scan returns every item of the table accepted by filter (nil accepts all).
	Scan(ctx context.Context, t Table, filter Filter) ([]Item, error)

	// BatchWrite puts up to MaxBatchSize items. Items the backend did not
	// persist are returned; the call is not atomic.
	BatchWrite(ctx context.Context, t Table, items []Item) ([]Item, error)

	// Update sets fields on the item at k and returns the updated item. A
	// missing item is created unless a condition forbids it.
	Update(ctx context.Context, t Table, k Key, fields map[string]any, conds ...Condition) (Item, error)

	// Delete removes the item at k. Deleting a missing item without
	// conditions is not an error.
	Delete(ctx context.Context, t Table, k Key, conds ...Condition) error

	// Driver names the backend for logs and metrics.
	Driver() string

	Close() error
}
