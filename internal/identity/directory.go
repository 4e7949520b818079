package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Directory looks up the display name of a participant for rendering.
type Directory interface {
	DisplayName(ctx context.Context, id string) (string, bool)
}

// DirectoryWriter is implemented by directories the chat layer can refresh.
type DirectoryWriter interface {
	Directory
	Remember(ctx context.Context, id, name string) error
}

// MemoryDirectory keeps names for the life of the process.
type MemoryDirectory struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{names: make(map[string]string)}
}

func (d *MemoryDirectory) DisplayName(_ context.Context, id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.names[strings.TrimSpace(id)]
	return n, ok
}

func (d *MemoryDirectory) Remember(_ context.Context, id, name string) error {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if id == "" || name == "" {
		return nil
	}
	d.mu.Lock()
	d.names[id] = name
	d.mu.Unlock()
	return nil
}

const directoryKey = "wordle:names"

// RedisDirectory shares names across bot instances in a single hash.
type RedisDirectory struct{ rdb *redis.Client }

func NewRedisDirectory(rdb *redis.Client) *RedisDirectory { return &RedisDirectory{rdb: rdb} }

func (d *RedisDirectory) DisplayName(ctx context.Context, id string) (string, bool) {
	n, err := d.rdb.HGet(ctx, directoryKey, strings.TrimSpace(id)).Result()
	if err != nil || n == "" {
		return "", false
	}
	return n, true
}

func (d *RedisDirectory) Remember(ctx context.Context, id, name string) error {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if id == "" || name == "" {
		return nil
	}
	return d.rdb.HSet(ctx, directoryKey, id, name).Err()
}
