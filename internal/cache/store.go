// Package cache はエンティティ種別ごとに一括無効化できるインメモリのキャッシュストアを提供する。
//
// 読み取りはキャッシュアサイド方式で、ヒットした場合は計算関数を呼ばない。
// 同一キーへの同時ミスは直列化しない（それぞれが計算し、最後に書いた値が残る）。
package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/jellydator/ttlcache/v3"
)

// Recorder はキャッシュの利用状況を記録するインターフェース。
// metrics.Collectorが実装する。
type Recorder interface {
	RecordCacheHit(tag string)
	RecordCacheMiss(tag string)
	RecordCacheEviction(tag, reason string)
}

// Store はTTLと最大件数を持つキャッシュストア。
// 内部のttlcacheは並行アクセスに対して安全。
type Store struct {
	cache    *ttlcache.Cache[string, any]
	recorder Recorder

	// mu はgenerationsの更新とSetを排他にする。
	// EvictAllの前に計算を開始した値がEvictAllの後に格納されることを防ぐ。
	mu          sync.Mutex
	generations map[string]uint64
}

// NewStore は設定に従ってStoreを生成し、期限切れエントリの掃除を開始する。
// recorderがnilの場合は記録しない。
func NewStore(cfg Config, recorder Recorder) *Store {
	opts := []ttlcache.Option[string, any]{
		ttlcache.WithTTL[string, any](cfg.TTL),
	}
	if cfg.MaxEntries > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, any](cfg.MaxEntries))
	}
	if !cfg.TouchOnHit {
		opts = append(opts, ttlcache.WithDisableTouchOnHit[string, any]())
	}

	s := &Store{
		cache:       ttlcache.New(opts...),
		recorder:    recorder,
		generations: make(map[string]uint64),
	}

	if recorder != nil {
		s.cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, any]) {
			recorder.RecordCacheEviction(tagOf(item.Key()), evictionReasonLabel(reason))
		})
	}

	go s.cache.Start()

	return s
}

// Close は掃除用のゴルーチンを停止する。
func (s *Store) Close() {
	s.cache.Stop()
}

// Len は現在のエントリ数を返す。期限切れで未削除のエントリを含む。
func (s *Store) Len() int {
	return s.cache.Len()
}

// GetOrCompute は有効なエントリがあればそれを返し、なければcomputeを呼び出して結果を格納する。
// computeがエラーを返した場合は何も格納せずにエラーを返す。
// 格納された値は複数の呼び出し元で共有されるため、呼び出し元は変更してはならない。
func GetOrCompute[T any](ctx context.Context, s *Store, key Key, compute func(ctx context.Context) (T, error)) (T, error) {
	k := key.String()

	if item := s.cache.Get(k); item != nil {
		if v, ok := item.Value().(T); ok {
			s.recordHit(key.Tag)
			slog.Debug("cache hit", slog.String("key", k))
			return v, nil
		}
	}

	s.recordMiss(key.Tag)
	slog.Debug("cache miss", slog.String("key", k))

	gen := s.generation(key.Tag)

	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	s.mu.Lock()
	if s.generations[key.Tag] == gen {
		s.cache.Set(k, v, ttlcache.DefaultTTL)
	}
	s.mu.Unlock()

	return v, nil
}

// EvictAll はタグが一致する全エントリを残りTTLに関係なく削除し、削除件数を返す。
func (s *Store) EvictAll(tag string) int {
	prefix := tag + ":"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generations[tag]++

	evicted := 0
	for _, k := range s.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.cache.Delete(k)
			evicted++
		}
	}

	slog.Debug("cache evicted",
		slog.String("tag", tag),
		slog.Int("count", evicted),
	)

	return evicted
}

func (s *Store) generation(tag string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[tag]
}

func (s *Store) recordHit(tag string) {
	if s.recorder != nil {
		s.recorder.RecordCacheHit(tag)
	}
}

func (s *Store) recordMiss(tag string) {
	if s.recorder != nil {
		s.recorder.RecordCacheMiss(tag)
	}
}

// evictionReasonLabel はメトリクスのラベル値に変換する。
func evictionReasonLabel(reason ttlcache.EvictionReason) string {
	switch reason {
	case ttlcache.EvictionReasonDeleted:
		return "invalidated"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity"
	case ttlcache.EvictionReasonExpired:
		return "expired"
	default:
		return "other"
	}
}
