package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/utils"
)

// ViewRecorder accepts post views without blocking the caller.
type ViewRecorder interface {
	Record(postID string)
}

// ViewCounter increments post view counts on background workers fed by a buffered queue.
type ViewCounter struct {
	db    *gorm.DB
	queue chan string
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewViewCounter starts workers goroutines draining a queue of queueSize post ids.
func NewViewCounter(db *gorm.DB, workers, queueSize int) *ViewCounter {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	v := &ViewCounter{db: db, queue: make(chan string, queueSize)}
	for i := 0; i < workers; i++ {
		v.wg.Add(1)
		go v.work()
	}
	return v
}

// Record enqueues one view. When the queue is full or stopped the view is dropped and logged.
func (v *ViewCounter) Record(postID string) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return
	}
	select {
	case v.queue <- postID:
	default:
		utils.Logger.Warn("view counter queue full, dropping view", zap.String("post_id", postID))
	}
}

// Stop drains queued views and waits for the workers to exit.
func (v *ViewCounter) Stop() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	close(v.queue)
	v.mu.Unlock()
	v.wg.Wait()
}

func (v *ViewCounter) work() {
	defer v.wg.Done()
	for id := range v.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := v.db.WithContext(ctx).Model(&models.Post{}).
			Where("id = ?", id).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
		cancel()
		if err != nil {
			utils.Logger.Error("increment view count failed", zap.String("post_id", id), zap.Error(err))
		}
	}
}
