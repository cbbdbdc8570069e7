package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/geosensing/allocator/internal/ports"
)

// RedisMatrixCache keeps resolved matrix cells in a Redis hash per origin.
// Field values are "meters|seconds" pairs.
type RedisMatrixCache struct {
	Client *redis.Client
	Prefix string
}

func NewRedisMatrixCache(client *redis.Client) *RedisMatrixCache {
	return &RedisMatrixCache{Client: client, Prefix: "allocator:matrix:"}
}

func (r *RedisMatrixCache) key(origin string) string { return r.Prefix + origin }

func (r *RedisMatrixCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (map[string]ports.CellResult, error) {
	if r.Client == nil {
		return nil, errors.New("matrix cache: redis client is nil")
	}
	if origin == "" {
		return nil, errors.New("get matrix cache: origin must not be empty")
	}

	uniq := dedupe(destinations)
	if len(uniq) == 0 {
		return map[string]ports.CellResult{}, nil
	}

	vals, err := r.Client.HMGet(ctx, r.key(origin), uniq...).Result()
	if err != nil {
		return nil, fmt.Errorf("get matrix cache: redis hmget: %w", err)
	}

	out := make(map[string]ports.CellResult, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		cell, err := decodeCell(s)
		if err != nil {
			return nil, fmt.Errorf("get matrix cache: field %q: %w", uniq[i], err)
		}
		out[uniq[i]] = cell
	}
	return out, nil
}

func (r *RedisMatrixCache) PutMany(
	ctx context.Context,
	origin string,
	cells map[string]ports.CellResult,
) error {
	if r.Client == nil {
		return errors.New("matrix cache: redis client is nil")
	}
	if origin == "" {
		return errors.New("insert matrix cache: origin must not be empty")
	}
	if len(cells) == 0 {
		return nil
	}

	fields := make(map[string]string, len(cells))
	for dest, cell := range cells {
		if strings.TrimSpace(dest) == "" {
			return errors.New("insert matrix cache: empty destination key")
		}
		fields[dest] = encodeCell(cell)
	}

	if err := r.Client.HSet(ctx, r.key(origin), fields).Err(); err != nil {
		return fmt.Errorf("insert matrix cache: redis hset: %w", err)
	}
	return nil
}

func encodeCell(c ports.CellResult) string {
	return strconv.FormatFloat(c.DistanceMeters, 'f', -1, 64) + "|" +
		strconv.FormatFloat(c.DurationSeconds, 'f', -1, 64)
}

func decodeCell(s string) (ports.CellResult, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return ports.CellResult{}, fmt.Errorf("malformed cell value %q", s)
	}
	meters, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return ports.CellResult{}, fmt.Errorf("malformed distance in %q", s)
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return ports.CellResult{}, fmt.Errorf("malformed duration in %q", s)
	}
	return ports.CellResult{DistanceMeters: meters, DurationSeconds: seconds}, nil
}
