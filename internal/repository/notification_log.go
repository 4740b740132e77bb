package repository

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/spec-kit/ticket-sla/internal/sla"
)

// NotificationLog remembers which ticket checkpoints already raised a breach
// notification, so a breach is signalled once even across restarts.
type NotificationLog interface {
	HasBeenNotified(ctx context.Context, ticketID string, checkpoint sla.Checkpoint) (bool, error)
	MarkNotified(ctx context.Context, ticketID string, checkpoint sla.Checkpoint) error
}

type notificationKey struct {
	ticketID   string
	checkpoint sla.Checkpoint
}

// MemoryNotificationLog is a process-local NotificationLog.
type MemoryNotificationLog struct {
	mu       sync.RWMutex
	notified map[notificationKey]struct{}
}

// NewMemoryNotificationLog builds an empty log.
func NewMemoryNotificationLog() *MemoryNotificationLog {
	return &MemoryNotificationLog{notified: make(map[notificationKey]struct{})}
}

func (l *MemoryNotificationLog) HasBeenNotified(_ context.Context, ticketID string, checkpoint sla.Checkpoint) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.notified[notificationKey{ticketID, checkpoint}]
	return ok, nil
}

func (l *MemoryNotificationLog) MarkNotified(_ context.Context, ticketID string, checkpoint sla.Checkpoint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notified[notificationKey{ticketID, checkpoint}] = struct{}{}
	return nil
}

// CachedNotificationLog answers repeated positive lookups from memory. Only
// "already notified" is cached since that answer never flips back.
type CachedNotificationLog struct {
	next  NotificationLog
	cache *gocache.Cache
}

// NewCachedNotificationLog wraps next with a TTL cache.
func NewCachedNotificationLog(next NotificationLog, ttl time.Duration) *CachedNotificationLog {
	return &CachedNotificationLog{next: next, cache: gocache.New(ttl, 2*ttl)}
}

func (l *CachedNotificationLog) HasBeenNotified(ctx context.Context, ticketID string, checkpoint sla.Checkpoint) (bool, error) {
	key := notificationCacheKey(ticketID, checkpoint)
	if _, ok := l.cache.Get(key); ok {
		return true, nil
	}
	notified, err := l.next.HasBeenNotified(ctx, ticketID, checkpoint)
	if err != nil {
		return false, err
	}
	if notified {
		l.cache.SetDefault(key, struct{}{})
	}
	return notified, nil
}

func (l *CachedNotificationLog) MarkNotified(ctx context.Context, ticketID string, checkpoint sla.Checkpoint) error {
	if err := l.next.MarkNotified(ctx, ticketID, checkpoint); err != nil {
		return err
	}
	l.cache.SetDefault(notificationCacheKey(ticketID, checkpoint), struct{}{})
	return nil
}

func notificationCacheKey(ticketID string, checkpoint sla.Checkpoint) string {
	return ticketID + ":" + string(checkpoint)
}
