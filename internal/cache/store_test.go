package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// --- モック ---

type mockRecorder struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{hits: map[string]int{}, misses: map[string]int{}}
}

func (m *mockRecorder) RecordCacheHit(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits[tag]++
}

func (m *mockRecorder) RecordCacheMiss(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses[tag]++
}

func (m *mockRecorder) RecordCacheEviction(tag, reason string) {}

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	s := NewStore(cfg, nil)
	t.Cleanup(s.Close)
	return s
}

// countingCompute は呼び出し回数を数えながら値を返す計算関数を返す。
func countingCompute(calls *int32, value string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

// --- テスト ---

// TestGetOrCompute_HitSkipsCompute は2回目の呼び出しで計算関数が呼ばれないことを検証する。
func TestGetOrCompute_HitSkipsCompute(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	ctx := context.Background()
	var calls int32

	first, err := GetOrCompute(ctx, s, IDKey("actors", "1"), countingCompute(&calls, "v1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := GetOrCompute(ctx, s, IDKey("actors", "1"), countingCompute(&calls, "v2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != "v1" || second != "v1" {
		t.Errorf("values = %q, %q, want both %q", first, second, "v1")
	}
	if calls != 1 {
		t.Errorf("compute calls = %d, want 1", calls)
	}
}

// TestGetOrCompute_ErrorIsNotCached は計算エラーがキャッシュされないことを検証する。
func TestGetOrCompute_ErrorIsNotCached(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	ctx := context.Background()
	wantErr := errors.New("db down")

	_, err := GetOrCompute(ctx, s, IDKey("movies", "tt0000001"), func(ctx context.Context) (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}

	var calls int32
	v, err := GetOrCompute(ctx, s, IDKey("movies", "tt0000001"), countingCompute(&calls, "ok"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 1 {
		t.Errorf("value = %q calls = %d, want %q and 1", v, calls, "ok")
	}
}

// TestEvictAll_RemovesOnlyMatchingTag はタグが一致するエントリのみ削除されることを検証する。
func TestEvictAll_RemovesOnlyMatchingTag(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	ctx := context.Background()
	var calls int32

	keys := []Key{
		AllKey("actors"),
		PageKey("actors", 0, 20),
		SearchKey("actors", "tom", 0, 20),
		IDKey("actors", "7"),
		AllKey("movies"),
	}
	for _, k := range keys {
		if _, err := GetOrCompute(ctx, s, k, countingCompute(&calls, k.String())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if n := s.EvictAll("actors"); n != 4 {
		t.Errorf("evicted = %d, want 4", n)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}

	calls = 0
	if _, err := GetOrCompute(ctx, s, AllKey("movies"), countingCompute(&calls, "x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Error("movies entry should survive actors eviction")
	}

	if _, err := GetOrCompute(ctx, s, IDKey("actors", "7"), countingCompute(&calls, "x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Error("evicted actors entry should be recomputed")
	}
}

// TestEvictAll_TagIsNotPrefixOfOtherTag はタグの前方一致で別タグを消さないことを検証する。
func TestEvictAll_TagIsNotPrefixOfOtherTag(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	var calls int32

	GetOrCompute(context.Background(), s, AllKey("actorsarchive"), countingCompute(&calls, "x"))

	if n := s.EvictAll("actors"); n != 0 {
		t.Errorf("evicted = %d, want 0", n)
	}
}

// TestGetOrCompute_ExpiredEntryIsRecomputed はTTL経過後に再計算されることを検証する。
func TestGetOrCompute_ExpiredEntryIsRecomputed(t *testing.T) {
	s := newTestStore(t, Config{MaxEntries: 10, TTL: 30 * time.Millisecond})
	ctx := context.Background()
	var calls int32

	GetOrCompute(ctx, s, AllKey("movies"), countingCompute(&calls, "v"))
	time.Sleep(80 * time.Millisecond)
	GetOrCompute(ctx, s, AllKey("movies"), countingCompute(&calls, "v"))

	if calls != 2 {
		t.Errorf("compute calls = %d, want 2", calls)
	}
}

// TestGetOrCompute_ReadDoesNotExtendTTL はexpireAfterWriteでは読み取りで期限が延びないことを検証する。
func TestGetOrCompute_ReadDoesNotExtendTTL(t *testing.T) {
	s := newTestStore(t, Config{MaxEntries: 10, TTL: 60 * time.Millisecond})
	ctx := context.Background()
	var calls int32

	GetOrCompute(ctx, s, AllKey("movies"), countingCompute(&calls, "v"))
	for i := 0; i < 4; i++ {
		time.Sleep(20 * time.Millisecond)
		GetOrCompute(ctx, s, AllKey("movies"), countingCompute(&calls, "v"))
	}

	if calls < 2 {
		t.Errorf("compute calls = %d, want at least 2", calls)
	}
}

// TestStore_CapacityIsBounded は最大件数を超えないことを検証する。
func TestStore_CapacityIsBounded(t *testing.T) {
	s := newTestStore(t, Config{MaxEntries: 3, TTL: time.Minute})
	ctx := context.Background()
	var calls int32

	for i := 0; i < 10; i++ {
		GetOrCompute(ctx, s, IDKey("actors", fmt.Sprint(i)), countingCompute(&calls, "v"))
	}

	if s.Len() > 3 {
		t.Errorf("Len = %d, want <= 3", s.Len())
	}
}

// TestGetOrCompute_ComputeRacingEvictionIsNotStored は
// 無効化より前に開始した計算結果が無効化後に格納されないことを検証する。
func TestGetOrCompute_ComputeRacingEvictionIsNotStored(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	ctx := context.Background()

	v, err := GetOrCompute(ctx, s, IDKey("actors", "1"), func(ctx context.Context) (string, error) {
		// 計算中に書き込みが発生した状況
		s.EvictAll("actors")
		return "stale", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "stale" {
		t.Errorf("value = %q, want %q", v, "stale")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0 (stale value must not be stored)", s.Len())
	}

	var calls int32
	v, _ = GetOrCompute(ctx, s, IDKey("actors", "1"), countingCompute(&calls, "fresh"))
	if v != "fresh" || calls != 1 {
		t.Errorf("value = %q calls = %d, want %q and 1", v, calls, "fresh")
	}
}

// TestGetOrCompute_RecordsHitAndMiss はヒットとミスが記録されることを検証する。
func TestGetOrCompute_RecordsHitAndMiss(t *testing.T) {
	rec := newMockRecorder()
	s := NewStore(DefaultConfig(), rec)
	defer s.Close()
	ctx := context.Background()
	var calls int32

	GetOrCompute(ctx, s, AllKey("movies"), countingCompute(&calls, "v"))
	GetOrCompute(ctx, s, AllKey("movies"), countingCompute(&calls, "v"))
	GetOrCompute(ctx, s, AllKey("movies"), countingCompute(&calls, "v"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.misses["movies"] != 1 {
		t.Errorf("misses = %d, want 1", rec.misses["movies"])
	}
	if rec.hits["movies"] != 2 {
		t.Errorf("hits = %d, want 2", rec.hits["movies"])
	}
}

// TestGetOrCompute_ConcurrentAccess は並行アクセスで破損しないことを検証する（-raceで実行）。
func TestGetOrCompute_ConcurrentAccess(t *testing.T) {
	s := newTestStore(t, Config{MaxEntries: 50, TTL: time.Minute})
	ctx := context.Background()
	var calls int32

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := PageKey("actors", j%5, 20)
				v, err := GetOrCompute(ctx, s, key, countingCompute(&calls, key.String()))
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if v != key.String() {
					t.Errorf("value = %q, want %q", v, key.String())
					return
				}
				if j%25 == 0 {
					s.EvictAll("actors")
				}
			}
		}(i)
	}
	wg.Wait()
}

// TestGetOrCompute_TypeMismatchIsTreatedAsMiss は異なる型で格納された値を返さないことを検証する。
func TestGetOrCompute_TypeMismatchIsTreatedAsMiss(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	ctx := context.Background()

	GetOrCompute(ctx, s, AllKey("actors"), func(ctx context.Context) (int, error) { return 1, nil })

	v, err := GetOrCompute(ctx, s, AllKey("actors"), func(ctx context.Context) (string, error) { return "s", nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "s" {
		t.Errorf("value = %q, want %q", v, "s")
	}
}
