package engagement

import (
	"errors"
	"fmt"
	"time"

	"example.com/engagefeed/internal/logger"
	"example.com/engagefeed/internal/models"
	"example.com/engagefeed/internal/store"
)

var logg = logger.New()

// Ledger is the append-only record of user-post interaction events. Events
// are never deduplicated on insert; only like events are ever removed, and
// only by the unlike transition.
type Ledger struct {
	store store.StoreInterface
}

func NewLedger(st store.StoreInterface) *Ledger {
	return &Ledger{store: st}
}

// Record appends one event unconditionally.
func (l *Ledger) Record(userID, postID, interactionType string, at time.Time) error {
	return l.store.AddInteraction(models.InteractionEvent{
		UserID:  userID,
		PostID:  postID,
		Type:    interactionType,
		Created: at,
	})
}

// RecordBatch appends one event per referenced post, silently skipping post
// ids that do not exist, and returns the number actually appended. An empty
// list is invalid input, not zero work.
func (l *Ledger) RecordBatch(userID string, postIDs []string, interactionType string, at time.Time) (int, error) {
	if len(postIDs) == 0 {
		return 0, fmt.Errorf("record batch: %w: no post IDs provided", store.ErrInvalidInput)
	}

	recorded := 0
	for _, postID := range postIDs {
		if _, err := l.store.GetPost(postID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return recorded, fmt.Errorf("record batch: %w", err)
		}
		if err := l.Record(userID, postID, interactionType, at); err != nil {
			return recorded, fmt.Errorf("record batch: %w", err)
		}
		recorded++
	}

	logg.Info("ledger", fmt.Sprintf("Recorded %d %s events (user ID anonymized)", recorded, interactionType))
	return recorded, nil
}

// Remove deletes at most one event matching the triple.
func (l *Ledger) Remove(userID, postID, interactionType string) error {
	_, err := l.store.RemoveInteraction(userID, postID, interactionType)
	return err
}

// HasInteracted reports whether any event of any type exists for the pair.
// The feed uses this as its exclusion predicate.
func (l *Ledger) HasInteracted(userID, postID string) (bool, error) {
	return l.store.HasInteracted(userID, postID)
}

// CountSince counts a post's events within the trailing window. An empty
// interactionType counts every type.
func (l *Ledger) CountSince(postID, interactionType string, window time.Duration) (int, error) {
	return l.store.CountInteractionsSince(postID, interactionType, time.Now().Add(-window))
}
