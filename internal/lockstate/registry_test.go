package lockstate

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestRegistry_LockAndUnlock(t *testing.T) {
	r := NewRegistry(5)

	if r.IsLocked(100) {
		t.Fatal("Expected chat to be unlocked initially")
	}

	permissions := &tgbotapi.ChatPermissions{CanSendMessages: true}
	r.LockChat(Lock{
		ChatID:           100,
		TriggerMessageID: 42,
		LockedBy:         7,
		LockedAt:         time.Now(),
		Permissions:      permissions,
	})

	if !r.IsLocked(100) {
		t.Fatal("Expected chat to be locked")
	}

	lock, ok := r.Get(100)
	if !ok {
		t.Fatal("Expected to find lock")
	}
	if lock.TriggerMessageID != 42 {
		t.Errorf("Expected trigger message 42, got %d", lock.TriggerMessageID)
	}
	if lock.Permissions == nil || !lock.Permissions.CanSendMessages {
		t.Error("Expected captured permissions to be stored with the lock")
	}

	removed, ok := r.UnlockChat(100)
	if !ok {
		t.Fatal("Expected unlock to succeed")
	}
	if removed.TriggerMessageID != 42 {
		t.Errorf("Expected removed lock to carry trigger message 42, got %d", removed.TriggerMessageID)
	}
	if r.IsLocked(100) {
		t.Error("Expected chat to be unlocked")
	}

	// Unlock removes the tally together with the lock
	if _, trigger := r.ApplyReaction(100, 42, 1, true); trigger {
		t.Error("Expected reactions on an unlocked chat to be ignored")
	}
	if r.TallyCount(100) != 0 {
		t.Error("Expected tally to be cleared on unlock")
	}
}

func TestRegistry_UnlockUnknownChat(t *testing.T) {
	r := NewRegistry(5)

	if _, ok := r.UnlockChat(999); ok {
		t.Error("Expected unlock of unknown chat to report not locked")
	}
}

func TestRegistry_ThresholdValidation(t *testing.T) {
	r := NewRegistry(5)

	for _, n := range []int{0, -1, -100} {
		if err := r.SetThreshold(n); err == nil {
			t.Errorf("Expected error for threshold %d", n)
		}
	}
	if r.Threshold() != 5 {
		t.Errorf("Expected threshold to stay 5, got %d", r.Threshold())
	}

	if err := r.SetThreshold(3); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r.Threshold() != 3 {
		t.Errorf("Expected threshold 3, got %d", r.Threshold())
	}
}

func TestRegistry_ApplyReaction(t *testing.T) {
	r := NewRegistry(5)
	r.LockChat(Lock{ChatID: 100, TriggerMessageID: 42})

	// Reactions on other messages or chats are ignored
	if _, trigger := r.ApplyReaction(100, 43, 1, true); trigger {
		t.Error("Expected reaction on non-trigger message to be ignored")
	}
	if _, trigger := r.ApplyReaction(200, 42, 1, true); trigger {
		t.Error("Expected reaction in unlocked chat to be ignored")
	}

	count, trigger := r.ApplyReaction(100, 42, 1, true)
	if !trigger || count != 1 {
		t.Errorf("Expected count 1 on trigger message, got %d (trigger=%v)", count, trigger)
	}

	// Same user reacting again does not inflate the tally
	count, _ = r.ApplyReaction(100, 42, 1, true)
	if count != 1 {
		t.Errorf("Expected duplicate reactor to count once, got %d", count)
	}

	count, _ = r.ApplyReaction(100, 42, 2, true)
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}

	// Removing a reaction shrinks the tally
	count, _ = r.ApplyReaction(100, 42, 1, false)
	if count != 1 {
		t.Errorf("Expected count 1 after removal, got %d", count)
	}
}

func TestRegistry_ReportedCount(t *testing.T) {
	r := NewRegistry(5)
	r.LockChat(Lock{ChatID: 100, TriggerMessageID: 42})

	r.ApplyReaction(100, 42, 1, true)
	r.ApplyReaction(100, 42, 2, true)

	// The effective tally is the larger of the reactor set and the
	// platform-reported total
	count, trigger := r.SetReportedCount(100, 42, 1)
	if !trigger || count != 2 {
		t.Errorf("Expected reactor set to dominate with 2, got %d", count)
	}

	count, _ = r.SetReportedCount(100, 42, 7)
	if count != 7 {
		t.Errorf("Expected reported total to dominate with 7, got %d", count)
	}

	if _, trigger := r.SetReportedCount(100, 43, 9); trigger {
		t.Error("Expected reported count on non-trigger message to be ignored")
	}
}

func TestRegistry_PendingUnlocks(t *testing.T) {
	r := NewRegistry(5)
	r.LockChat(Lock{ChatID: 100, TriggerMessageID: 42})
	r.LockChat(Lock{ChatID: 200, TriggerMessageID: 7})

	if len(r.PendingUnlocks()) != 0 {
		t.Fatal("Expected no pending unlocks initially")
	}

	r.MarkUnlockPending(100)
	pending := r.PendingUnlocks()
	if len(pending) != 1 || pending[0].ChatID != 100 {
		t.Errorf("Expected chat 100 pending, got %v", pending)
	}

	// Marking an unlocked chat is a no-op
	r.MarkUnlockPending(999)
	if len(r.PendingUnlocks()) != 1 {
		t.Error("Expected pending set unchanged")
	}
}

func TestRegistry_PruneTallies(t *testing.T) {
	r := NewRegistry(5)
	r.LockChat(Lock{ChatID: 100, TriggerMessageID: 42})
	r.LockChat(Lock{ChatID: 200, TriggerMessageID: 7})
	r.ApplyReaction(100, 42, 1, true)

	if removed := r.PruneTallies(); removed != 0 {
		t.Errorf("Expected nothing to prune, got %d", removed)
	}

	// UnlockChat already clears its own tally, so pruning normally finds
	// nothing; it exists as a safety net, verified here by construction.
	r.UnlockChat(100)
	if removed := r.PruneTallies(); removed != 0 {
		t.Errorf("Expected no stale tallies after unlock, got %d", removed)
	}
	if r.TallyCount(200) != 0 {
		t.Error("Expected remaining lock's tally untouched")
	}
}

func TestNewRegistry_ClampsThreshold(t *testing.T) {
	r := NewRegistry(0)
	if r.Threshold() != 1 {
		t.Errorf("Expected non-positive default to clamp to 1, got %d", r.Threshold())
	}
}
