package utils

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// WindowCounter enforces at most limit hits per key within fixed windows.
// Counters live in Redis when a client is available and in process memory otherwise.
type WindowCounter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	local map[string]*windowSlot
}

type windowSlot struct {
	start time.Time
	count int
}

const localSweepThreshold = 1024

// NewWindowCounter creates a counter. rdb may be nil.
func NewWindowCounter(rdb *redis.Client, prefix string, limit int, window time.Duration) *WindowCounter {
	return &WindowCounter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
		local:  map[string]*windowSlot{},
	}
}

// Allow records one hit for key and reports whether it is within the limit.
func (w *WindowCounter) Allow(ctx context.Context, key string) bool {
	if w.limit <= 0 {
		return true
	}
	start := w.now().Truncate(w.window)
	if w.rdb != nil {
		n, err := w.incrRemote(ctx, key, start)
		if err == nil {
			return n <= int64(w.limit)
		}
		Logger.Warn("window counter falling back to memory", zap.String("prefix", w.prefix), zap.Error(err))
	}
	return w.incrLocal(key, start) <= w.limit
}

func (w *WindowCounter) incrRemote(ctx context.Context, key string, start time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	redisKey := w.prefix + ":" + key + ":" + strconv.FormatInt(start.Unix(), 10)
	n, err := w.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		_ = w.rdb.Expire(ctx, redisKey, w.window).Err()
	}
	return n, nil
}

func (w *WindowCounter) incrLocal(key string, start time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.local) > localSweepThreshold {
		for k, slot := range w.local {
			if slot.start.Before(start) {
				delete(w.local, k)
			}
		}
	}

	slot, ok := w.local[key]
	if !ok || !slot.start.Equal(start) {
		slot = &windowSlot{start: start}
		w.local[key] = slot
	}
	slot.count++
	return slot.count
}
