package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryItem stores cached value with expiration.
type MemoryItem struct {
	Value    []byte
	ExpireAt time.Time
}

// IsExpired checks if item has expired. A zero ExpireAt never expires.
func (m *MemoryItem) IsExpired() bool {
	return !m.ExpireAt.IsZero() && time.Now().After(m.ExpireAt)
}

// MemoryCache implements Service in process memory. It backs the history
// store when Redis is disabled and in tests.
type MemoryCache struct {
	data          map[string]*MemoryItem
	lists         map[string][]string
	mutex         sync.RWMutex
	maxListLen    int
	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		CleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:          make(map[string]*MemoryItem),
		lists:         make(map[string][]string),
		maxListLen:    cfg.MaxListLen,
		cleanupTicker: time.NewTicker(cfg.CleanupInterval),
		done:          make(chan struct{}),
	}

	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	item := &MemoryItem{Value: data}
	if expiration > 0 {
		item.ExpireAt = time.Now().Add(expiration)
	}
	mc.data[key] = item
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.RLock()
	item, exists := mc.data[key]
	mc.mutex.RUnlock()

	if !exists || item.IsExpired() {
		return ErrCacheMiss
	}
	return assign(item.Value, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
		delete(mc.lists, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	for _, key := range keys {
		if item, ok := mc.data[key]; ok && !item.IsExpired() {
			return true, nil
		}
		if len(mc.lists[key]) > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) LPush(_ context.Context, key string, values ...interface{}) error {
	encoded := make([]string, 0, len(values))
	for _, v := range values {
		data, err := encode(v)
		if err != nil {
			return err
		}
		encoded = append(encoded, string(data))
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	// Each value goes to the head in turn, same as redis LPUSH a b c -> [c b a].
	list := mc.lists[key]
	head := make([]string, 0, len(encoded)+len(list))
	for i := len(encoded) - 1; i >= 0; i-- {
		head = append(head, encoded[i])
	}
	list = append(head, list...)
	if mc.maxListLen > 0 && len(list) > mc.maxListLen {
		list = list[:mc.maxListLen]
	}
	mc.lists[key] = list
	return nil
}

func (mc *MemoryCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	list := mc.lists[key]
	s, e := normalizeRange(len(list), start, stop)
	out := make([]string, e-s)
	copy(out, list[s:e])
	return out, nil
}

func (mc *MemoryCache) LTrim(_ context.Context, key string, start, stop int64) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	list := mc.lists[key]
	s, e := normalizeRange(len(list), start, stop)
	if s == e {
		delete(mc.lists, key)
		return nil
	}
	mc.lists[key] = append([]string(nil), list[s:e]...)
	return nil
}

func (mc *MemoryCache) LIndex(_ context.Context, key string, index int64) (string, error) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	list := mc.lists[key]
	i := int(index)
	if i < 0 {
		i += len(list)
	}
	if i < 0 || i >= len(list) {
		return "", ErrCacheMiss
	}
	return list[i], nil
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.cleanupTicker.C:
			mc.mutex.Lock()
			for key, item := range mc.data {
				if item.IsExpired() {
					delete(mc.data, key)
				}
			}
			mc.mutex.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		mc.cleanupTicker.Stop()
		close(mc.done)
	})
	return nil
}

func assign(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	default:
		return json.Unmarshal(data, dest)
	}
}
