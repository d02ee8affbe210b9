package countstore

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"wsntrace/pkg/models"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr(), KeyPrefix: "test:pairs"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	store.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	counts := []models.PairCount{
		{Source: "3", Destination: "1", Count: 4},
		{Source: "1", Destination: "2", Count: 10},
		{Source: "1", Destination: "2", Count: 2},
		{Source: "", Destination: "2", Count: 9},
	}
	if err := store.WriteCounts(ctx, "baseline", counts); err != nil {
		t.Fatalf("write counts: %v", err)
	}

	got, err := store.ReadCounts(ctx, "baseline")
	if err != nil {
		t.Fatalf("read counts: %v", err)
	}
	want := []models.PairCount{
		{Source: "1", Destination: "2", Count: 12},
		{Source: "3", Destination: "1", Count: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	runs, err := store.Runs(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Run != "baseline" || runs[0].Pairs != 2 || runs[0].Total != 16 {
		t.Fatalf("unexpected run info: %+v", runs)
	}
	if !runs[0].UpdatedAt.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected updated_at: %v", runs[0].UpdatedAt)
	}
}

func TestRedisStoreWriteReplacesRun(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.WriteCounts(ctx, "attack", []models.PairCount{{Source: "1", Destination: "2", Count: 5}}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := store.WriteCounts(ctx, "attack", []models.PairCount{{Source: "11", Destination: "1", Count: 3}}); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, err := store.ReadCounts(ctx, "attack")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Source != "11" {
		t.Fatalf("expected replaced counts, got %+v", got)
	}
}

func TestRedisStoreUnknownRun(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.ReadCounts(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRedisStoreEmptyRunIsKnown(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	if err := store.WriteCounts(ctx, "quiet", nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := store.ReadCounts(ctx, "quiet")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no counts, got %+v", got)
	}
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedisStore(RedisConfig{Addr: addr}); err == nil {
		t.Fatalf("expected ping error for closed server")
	}
}

func TestDecodeMember(t *testing.T) {
	for _, bad := range []string{"1|2", `["1"]`, `["", "2"]`} {
		if _, _, ok := decodeMember(bad); ok {
			t.Fatalf("expected decode failure for %q", bad)
		}
	}
	src, dst, ok := decodeMember(encodeMember("fd00::1", "fd00::2"))
	if !ok || src != "fd00::1" || dst != "fd00::2" {
		t.Fatalf("unexpected decode: %q %q %v", src, dst, ok)
	}
}

func TestRedisStoreKeepsSeparatorInIDs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	counts := []models.PairCount{
		{Source: "a|b", Destination: "c", Count: 2},
		{Source: "a", Destination: "b|c", Count: 5},
	}
	if err := store.WriteCounts(ctx, "pipes", counts); err != nil {
		t.Fatalf("write counts: %v", err)
	}
	got, err := store.ReadCounts(ctx, "pipes")
	if err != nil {
		t.Fatalf("read counts: %v", err)
	}
	want := []models.PairCount{
		{Source: "a", Destination: "b|c", Count: 5},
		{Source: "a|b", Destination: "c", Count: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
