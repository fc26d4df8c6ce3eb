// Package lockstate owns the bot's in-memory moderation state: which chats
// are locked, the permission sets captured at lock time, the process-wide
// reaction threshold, and the reaction tallies on trigger messages. All
// access goes through a single mutex so lock state and captured permissions
// are always created and removed together.
package lockstate

import (
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Lock describes one locked chat
type Lock struct {
	ChatID           int64
	TriggerMessageID int
	LockedBy         int64
	LockedAt         time.Time
	// Permissions is the permission set captured at lock time, nil when
	// the platform did not report one (a default is applied on unlock).
	Permissions *tgbotapi.ChatPermissions
	// UnlockPending is set when the reaction threshold was met but the
	// platform rejected the unlock call; the sweeper retries these.
	UnlockPending bool
}

// tally tracks reactions on a locked chat's trigger message
type tally struct {
	reactors map[int64]struct{}
	reported int // best-known total from message_reaction_count updates
}

func (t *tally) count() int {
	if len(t.reactors) > t.reported {
		return len(t.reactors)
	}
	return t.reported
}

// Registry is the owned state object for all lock-related data
type Registry struct {
	mu        sync.RWMutex
	locks     map[int64]*Lock
	tallies   map[int64]*tally
	threshold int
}

// NewRegistry creates a registry with the given default reaction threshold
func NewRegistry(threshold int) *Registry {
	if threshold < 1 {
		threshold = 1
	}
	return &Registry{
		locks:     make(map[int64]*Lock),
		tallies:   make(map[int64]*tally),
		threshold: threshold,
	}
}

// LockChat records a chat as locked and starts a fresh reaction tally for
// its trigger message. Locking an already-locked chat overwrites the entry.
func (r *Registry) LockChat(lock Lock) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := lock
	r.locks[lock.ChatID] = &l
	r.tallies[lock.ChatID] = &tally{reactors: make(map[int64]struct{})}
}

// UnlockChat removes the lock and its reaction tally in one step. It
// returns the removed lock, ok=false when the chat was not locked.
func (r *Registry) UnlockChat(chatID int64) (Lock, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[chatID]
	if !ok {
		return Lock{}, false
	}
	delete(r.locks, chatID)
	delete(r.tallies, chatID)
	return *l, true
}

// Get returns the lock for a chat, ok=false when not locked
func (r *Registry) Get(chatID int64) (Lock, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.locks[chatID]
	if !ok {
		return Lock{}, false
	}
	return *l, true
}

// IsLocked reports whether a chat is locked
func (r *Registry) IsLocked(chatID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.locks[chatID]
	return ok
}

// Threshold returns the current reaction threshold
func (r *Registry) Threshold() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.threshold
}

// SetThreshold updates the reaction threshold, rejecting non-positive values
func (r *Registry) SetThreshold(n int) error {
	if n < 1 {
		return fmt.Errorf("required reactions must be a positive number, got %d", n)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.threshold = n
	return nil
}

// ApplyReaction updates the reactor set for a message from a per-user
// reaction change. It returns the current tally and whether the message is
// the trigger message of a locked chat; reactions anywhere else are ignored.
func (r *Registry) ApplyReaction(chatID int64, messageID int, userID int64, added bool) (count int, trigger bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[chatID]
	if !ok || l.TriggerMessageID != messageID {
		return 0, false
	}

	t, ok := r.tallies[chatID]
	if !ok {
		t = &tally{reactors: make(map[int64]struct{})}
		r.tallies[chatID] = t
	}

	if added {
		t.reactors[userID] = struct{}{}
	} else {
		delete(t.reactors, userID)
	}
	return t.count(), true
}

// SetReportedCount records the platform-reported total reaction count for a
// message (anonymous reactions arrive as totals, not per-user changes).
func (r *Registry) SetReportedCount(chatID int64, messageID, total int) (count int, trigger bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[chatID]
	if !ok || l.TriggerMessageID != messageID {
		return 0, false
	}

	t, ok := r.tallies[chatID]
	if !ok {
		t = &tally{reactors: make(map[int64]struct{})}
		r.tallies[chatID] = t
	}

	t.reported = total
	return t.count(), true
}

// TallyCount returns the current reaction tally on a locked chat's trigger
// message, 0 when the chat is not locked.
func (r *Registry) TallyCount(chatID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tallies[chatID]
	if !ok {
		return 0
	}
	return t.count()
}

// MarkUnlockPending flags a locked chat whose platform unlock failed
func (r *Registry) MarkUnlockPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.locks[chatID]; ok {
		l.UnlockPending = true
	}
}

// PendingUnlocks returns locks whose platform unlock needs a retry
func (r *Registry) PendingUnlocks() []Lock {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []Lock
	for _, l := range r.locks {
		if l.UnlockPending {
			pending = append(pending, *l)
		}
	}
	return pending
}

// PruneTallies drops tallies that no longer belong to a locked chat and
// returns how many were removed.
func (r *Registry) PruneTallies() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for chatID := range r.tallies {
		if _, ok := r.locks[chatID]; !ok {
			delete(r.tallies, chatID)
			removed++
		}
	}
	return removed
}
