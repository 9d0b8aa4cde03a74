package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore 进程内存储, 仅适用于单节点.
// 过期时间在创建时固定, Set 的 ttl 参数被忽略.
type MemoryStore struct {
	lru *expirable.LRU[string, string]
}

// NewMemoryStore 创建进程内存储
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Get 获取缓存
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.lru.Get(key)
	if !ok {
		return "", ErrMiss
	}
	return value, nil
}

// Set 设置缓存
func (s *MemoryStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.lru.Add(key, value)
	return nil
}

// Del 删除缓存
func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.lru.Remove(k)
	}
	return nil
}
