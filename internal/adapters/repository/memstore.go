package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/sportsmeet/pkg/metrics"
)

const driverMemory = "memory"

// MemoryStore is an in-process Store. Every operation holds the store lock,
// so conditional writes are race free within one process.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[Key]Item
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		tables: make(map[string]map[Key]Item),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Driver() string { return driverMemory }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(driverMemory, op, statusOf(err), float64(s.now().Sub(start).Microseconds())/1000)
}

func (s *MemoryStore) table(name string) map[Key]Item {
	tbl, ok := s.tables[name]
	if !ok {
		tbl = make(map[Key]Item)
		s.tables[name] = tbl
	}
	return tbl
}

func (s *MemoryStore) Put(ctx context.Context, t Table, item Item, conds ...Condition) (err error) {
	defer func(start time.Time) { s.observe("put", start, err) }(s.now())
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := t.KeyOf(item)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tbl := s.table(t.Name)
	if !allHold(conds, tbl[k]) {
		return ErrConditionFailed
	}
	tbl[k] = item.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, t Table, k Key) (_ Item, err error) {
	defer func(start time.Time) { s.observe("get", start, err) }(s.now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.validKey(k); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.tables[t.Name][k]
	if !ok {
		return nil, ErrNotFound
	}
	return it.Clone(), nil
}

func (s *MemoryStore) Query(ctx context.Context, t Table, partition, sortPrefix string) (_ []Item, err error) {
	defer func(start time.Time) { s.observe("query", start, err) }(s.now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []Item
	for k, it := range s.tables[t.Name] {
		if k.Partition == partition && strings.HasPrefix(k.Sort, sortPrefix) {
			out = append(out, it.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return stringValue(out[i], t.SortKey) < stringValue(out[j], t.SortKey)
	})
	return out, nil
}

func (s *MemoryStore) Scan(ctx context.Context, t Table, filter Filter) (_ []Item, err error) {
	defer func(start time.Time) { s.observe("scan", start, err) }(s.now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	keys := make([]Key, 0, len(s.tables[t.Name]))
	for k := range s.tables[t.Name] {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Partition != keys[j].Partition {
			return keys[i].Partition < keys[j].Partition
		}
		return keys[i].Sort < keys[j].Sort
	})
	out := make([]Item, 0, len(keys))
	for _, k := range keys {
		it := s.tables[t.Name][k]
		if filter == nil || filter(it) {
			out = append(out, it.Clone())
		}
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *MemoryStore) BatchWrite(ctx context.Context, t Table, items []Item) (_ []Item, err error) {
	defer func(start time.Time) { s.observe("batch_write", start, err) }(s.now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(items) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	ks := make([]Key, len(items))
	for i, it := range items {
		k, err := t.KeyOf(it)
		if err != nil {
			return nil, err
		}
		ks[i] = k
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tbl := s.table(t.Name)
	for i, it := range items {
		tbl[ks[i]] = it.Clone()
	}
	return nil, nil
}

func (s *MemoryStore) Update(ctx context.Context, t Table, k Key, fields map[string]any, conds ...Condition) (_ Item, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(s.now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.validKey(k); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tbl := s.table(t.Name)
	current := tbl[k]
	if !allHold(conds, current) {
		return nil, ErrConditionFailed
	}
	next := current.Clone()
	if next == nil {
		next = t.keyItem(k)
	}
	for name, v := range fields {
		if name == t.PartitionKey || name == t.SortKey {
			continue
		}
		next[name] = v
	}
	tbl[k] = next
	return next.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, t Table, k Key, conds ...Condition) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(s.now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.validKey(k); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tbl := s.table(t.Name)
	if !allHold(conds, tbl[k]) {
		return ErrConditionFailed
	}
	delete(tbl, k)
	return nil
}
