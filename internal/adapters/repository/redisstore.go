package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/sportsmeet/pkg/metrics"
)

const (
	driverRedis    = "redis"
	redisPingLimit = 5 * time.Second
	// mgetChunk bounds the keys fetched per MGET during scans.
	mgetChunk = 200
)

// RedisStore keeps each item as a JSON string. A sorted set per partition
// (all scores 0, ordered lexicographically) serves prefix queries and a set
// per table serves scans. Conditional writes run in WATCH/MULTI
// transactions.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: "sportsmeet"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenRedis connects to addr and verifies the connection with PING.
func OpenRedis(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingLimit)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisStore(rdb, opts...), nil
}

func (s *RedisStore) Driver() string { return driverRedis }

func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(driverRedis, op, statusOf(err), float64(time.Since(start).Microseconds())/1000)
}

func member(k Key) string { return k.Partition + "|" + k.Sort }

func (s *RedisStore) itemKey(t Table, k Key) string {
	return s.prefix + ":" + t.Name + ":item:" + member(k)
}

func (s *RedisStore) partitionKey(t Table, partition string) string {
	return s.prefix + ":" + t.Name + ":part:" + partition
}

func (s *RedisStore) tableKey(t Table) string {
	return s.prefix + ":" + t.Name + ":keys"
}

func decodeItem(data []byte) (Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var it Item
	if err := dec.Decode(&it); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return it, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// load returns the current item or nil when absent.
func (s *RedisStore) load(ctx context.Context, c stringGetter, key string) (Item, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeItem(data)
}

func (s *RedisStore) write(ctx context.Context, p redis.Pipeliner, t Table, k Key, data []byte) *redis.StatusCmd {
	cmd := p.Set(ctx, s.itemKey(t, k), data, 0)
	p.ZAdd(ctx, s.partitionKey(t, k.Partition), redis.Z{Score: 0, Member: k.Sort})
	p.SAdd(ctx, s.tableKey(t), member(k))
	return cmd
}

func (s *RedisStore) remove(ctx context.Context, p redis.Pipeliner, t Table, k Key) {
	p.Del(ctx, s.itemKey(t, k))
	p.ZRem(ctx, s.partitionKey(t, k.Partition), k.Sort)
	p.SRem(ctx, s.tableKey(t), member(k))
}

// guarded runs fn in a WATCH transaction on the item key after checking
// conds against the current item.
func (s *RedisStore) guarded(ctx context.Context, t Table, k Key, conds []Condition,
	fn func(current Item, p redis.Pipeliner) error,
) error {
	ik := s.itemKey(t, k)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.load(ctx, tx, ik)
		if err != nil {
			return err
		}
		if !allHold(conds, current) {
			return ErrConditionFailed
		}
		var fnErr error
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			fnErr = fn(current, p)
			return fnErr
		})
		if fnErr != nil {
			return fnErr
		}
		return err
	}, ik)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%s: concurrent modification: %w", k, err)
	}
	return err
}

func (s *RedisStore) Put(ctx context.Context, t Table, item Item, conds ...Condition) (err error) {
	defer func(start time.Time) { s.observe("put", start, err) }(time.Now())
	k, err := t.KeyOf(item)
	if err != nil {
		return err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	return s.guarded(ctx, t, k, conds, func(_ Item, p redis.Pipeliner) error {
		s.write(ctx, p, t, k, data)
		return nil
	})
}

func (s *RedisStore) Get(ctx context.Context, t Table, k Key) (_ Item, err error) {
	defer func(start time.Time) { s.observe("get", start, err) }(time.Now())
	if err := t.validKey(k); err != nil {
		return nil, err
	}
	it, err := s.load(ctx, s.rdb, s.itemKey(t, k))
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrNotFound
	}
	return it, nil
}

func (s *RedisStore) fetch(ctx context.Context, keys []string) ([]Item, error) {
	out := make([]Item, 0, len(keys))
	for start := 0; start < len(keys); start += mgetChunk {
		end := min(start+mgetChunk, len(keys))
		vals, err := s.rdb.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			str, ok := v.(string)
			if !ok {
				// index entry without an item; the item was deleted mid-read
				continue
			}
			it, err := decodeItem([]byte(str))
			if err != nil {
				return nil, err
			}
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *RedisStore) Query(ctx context.Context, t Table, partition, sortPrefix string) (_ []Item, err error) {
	defer func(start time.Time) { s.observe("query", start, err) }(time.Now())
	by := &redis.ZRangeBy{Min: "-", Max: "+"}
	if sortPrefix != "" {
		by = &redis.ZRangeBy{Min: "[" + sortPrefix, Max: "[" + sortPrefix + "\xff"}
	}
	sorts, err := s.rdb.ZRangeByLex(ctx, s.partitionKey(t, partition), by).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(sorts))
	for i, sk := range sorts {
		keys[i] = s.itemKey(t, Key{Partition: partition, Sort: sk})
	}
	return s.fetch(ctx, keys)
}

func (s *RedisStore) Scan(ctx context.Context, t Table, filter Filter) (_ []Item, err error) {
	defer func(start time.Time) { s.observe("scan", start, err) }(time.Now())
	members, err := s.rdb.SMembers(ctx, s.tableKey(t)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = s.prefix + ":" + t.Name + ":item:" + m
	}
	items, err := s.fetch(ctx, keys)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return items, nil
	}
	out := items[:0]
	for _, it := range items {
		if filter(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *RedisStore) BatchWrite(ctx context.Context, t Table, items []Item) (_ []Item, err error) {
	defer func(start time.Time) { s.observe("batch_write", start, err) }(time.Now())
	if len(items) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	ks := make([]Key, len(items))
	payloads := make([][]byte, len(items))
	for i, it := range items {
		if ks[i], err = t.KeyOf(it); err != nil {
			return nil, err
		}
		if payloads[i], err = json.Marshal(it); err != nil {
			return nil, fmt.Errorf("encode item: %w", err)
		}
	}

	sets := make([]*redis.StatusCmd, len(items))
	_, execErr := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i := range items {
			sets[i] = s.write(ctx, p, t, ks[i], payloads[i])
		}
		return nil
	})

	var unprocessed []Item
	for i, cmd := range sets {
		if cmd == nil || cmd.Err() != nil {
			unprocessed = append(unprocessed, items[i])
		}
	}
	// A transport failure fails the pipeline without marking its commands.
	if execErr != nil && (len(unprocessed) == 0 || len(unprocessed) == len(items)) {
		return nil, execErr
	}
	return unprocessed, nil
}

func (s *RedisStore) Update(ctx context.Context, t Table, k Key, fields map[string]any, conds ...Condition) (_ Item, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())
	if err := t.validKey(k); err != nil {
		return nil, err
	}
	var next Item
	err = s.guarded(ctx, t, k, conds, func(current Item, p redis.Pipeliner) error {
		next = current.Clone()
		if next == nil {
			next = t.keyItem(k)
		}
		for name, v := range fields {
			if name == t.PartitionKey || name == t.SortKey {
				continue
			}
			next[name] = v
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode item: %w", err)
		}
		s.write(ctx, p, t, k, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *RedisStore) Delete(ctx context.Context, t Table, k Key, conds ...Condition) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	if err := t.validKey(k); err != nil {
		return err
	}
	return s.guarded(ctx, t, k, conds, func(_ Item, p redis.Pipeliner) error {
		s.remove(ctx, p, t, k)
		return nil
	})
}
