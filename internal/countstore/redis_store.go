package countstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"wsntrace/pkg/models"
)

// ErrRunNotFound is returned when no counts were stored for a run.
var ErrRunNotFound = errors.New("run not found in count store")

// RedisConfig configures Redis access for pair-count persistence.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RunInfo summarizes one stored run.
type RunInfo struct {
	Run       string    `json:"run"`
	Pairs     int       `json:"pairs"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// RedisStore keeps one hash of pair counts per run.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore constructs a Redis-backed count store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "wsntrace:pairs"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis count store: %w", err)
	}

	return &RedisStore{client: client, prefix: strings.TrimSpace(cfg.KeyPrefix), now: time.Now}, nil
}

// WriteCounts replaces the stored counts of a run.
func (s *RedisStore) WriteCounts(ctx context.Context, run string, counts []models.PairCount) error {
	run = strings.TrimSpace(run)
	if run == "" {
		return fmt.Errorf("run name is required")
	}

	fields := make(map[string]interface{}, len(counts))
	total := 0
	for _, c := range counts {
		if c.Source == "" || c.Destination == "" || c.Count <= 0 {
			continue
		}
		member := encodeMember(c.Source, c.Destination)
		if prev, ok := fields[member].(int); ok {
			fields[member] = prev + c.Count
		} else {
			fields[member] = c.Count
		}
		total += c.Count
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.runKey(run))
	if len(fields) > 0 {
		pipe.HSet(ctx, s.runKey(run), fields)
	}
	pipe.HSet(ctx, s.metaKey(run),
		"pairs", strconv.Itoa(len(fields)),
		"total", strconv.Itoa(total),
		"updated_at", strconv.FormatInt(s.now().Unix(), 10),
	)
	pipe.SAdd(ctx, s.runsKey(), run)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write pair counts for run %s: %w", run, err)
	}
	return nil
}

// ReadCounts restores a run's pair counts, sorted by source then destination.
func (s *RedisStore) ReadCounts(ctx context.Context, run string) ([]models.PairCount, error) {
	known, err := s.client.SIsMember(ctx, s.runsKey(), run).Result()
	if err != nil {
		return nil, fmt.Errorf("check run %s: %w", run, err)
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, run)
	}

	hash, err := s.client.HGetAll(ctx, s.runKey(run)).Result()
	if err != nil {
		return nil, fmt.Errorf("read pair counts for run %s: %w", run, err)
	}

	out := make([]models.PairCount, 0, len(hash))
	for member, raw := range hash {
		src, dst, ok := decodeMember(member)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, models.PairCount{Source: src, Destination: dst, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Destination < out[j].Destination
	})
	return out, nil
}

// Runs lists stored runs by name.
func (s *RedisStore) Runs(ctx context.Context) ([]RunInfo, error) {
	names, err := s.client.SMembers(ctx, s.runsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	sort.Strings(names)

	out := make([]RunInfo, 0, len(names))
	for _, name := range names {
		meta, err := s.client.HGetAll(ctx, s.metaKey(name)).Result()
		if err != nil {
			return nil, fmt.Errorf("read run %s metadata: %w", name, err)
		}
		info := RunInfo{Run: name}
		info.Pairs, _ = strconv.Atoi(meta["pairs"])
		info.Total, _ = strconv.Atoi(meta["total"])
		if ts, _ := strconv.ParseInt(meta["updated_at"], 10, 64); ts > 0 {
			info.UpdatedAt = time.Unix(ts, 0).UTC()
		}
		out = append(out, info)
	}
	return out, nil
}

// Close closes Redis resources.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) runKey(run string) string {
	return s.prefix + ":run:" + run
}

func (s *RedisStore) metaKey(run string) string {
	return s.prefix + ":meta:" + run
}

func (s *RedisStore) runsKey() string {
	return s.prefix + ":runs"
}

// encodeMember renders a pair as the JSON array ["src","dst"].
func encodeMember(src, dst string) string {
	b, _ := json.Marshal([2]string{src, dst})
	return string(b)
}

func decodeMember(member string) (string, string, bool) {
	var pair []string
	if err := json.Unmarshal([]byte(member), &pair); err != nil || len(pair) != 2 {
		return "", "", false
	}
	if strings.TrimSpace(pair[0]) == "" || strings.TrimSpace(pair[1]) == "" {
		return "", "", false
	}
	return pair[0], pair[1], true
}
