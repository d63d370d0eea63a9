package engagement

import (
	"fmt"
	"time"

	"example.com/engagefeed/internal/models"
	"example.com/engagefeed/internal/store"
)

// Toggle result states returned to clients.
const (
	StateLiked      = "liked"
	StateUnliked    = "unliked"
	StateFollowed   = "followed"
	StateUnfollowed = "unfollowed"
)

// toggleRetries bounds how often a toggle re-attempts after losing both LWT
// races to a concurrent toggle on the same pair.
const toggleRetries = 3

// Toggler drives the Like and Follow two-state machines. Each transition is
// a storage-level compare-and-set on the pair; a lost race means a concurrent
// toggle flipped the state first, so we retry the transition instead of
// surfacing an error.
type Toggler struct {
	store    store.StoreInterface
	ledger   *Ledger
	affinity *Tracker
}

func NewToggler(st store.StoreInterface, ledger *Ledger, affinity *Tracker) *Toggler {
	return &Toggler{store: st, ledger: ledger, affinity: affinity}
}

// ToggleLike flips the like relation for (userID, postID).
// liked:   relation row + one "like" ledger event + affinity update.
// unliked: relation row gone + at most one "like" event removed.
// Affinity is never rolled back on unlike.
func (t *Toggler) ToggleLike(userID, postID string) (string, error) {
	post, err := t.store.GetPost(postID)
	if err != nil {
		return "", fmt.Errorf("toggle like: %w", err)
	}

	for attempt := 0; attempt < toggleRetries; attempt++ {
		applied, err := t.store.InsertLike(userID, postID)
		if err != nil {
			return "", fmt.Errorf("toggle like: %w", err)
		}
		if applied {
			if err := t.ledger.Record(userID, postID, models.InteractionLike, time.Now()); err != nil {
				return "", fmt.Errorf("toggle like: %w", err)
			}
			if err := t.affinity.OnPositiveSignal(userID, post.Tags); err != nil {
				return "", fmt.Errorf("toggle like: %w", err)
			}
			logg.Info("toggle", "Like added (user IDs anonymized)")
			return StateLiked, nil
		}

		applied, err = t.store.DeleteLike(userID, postID)
		if err != nil {
			return "", fmt.Errorf("toggle like: %w", err)
		}
		if applied {
			if err := t.ledger.Remove(userID, postID, models.InteractionLike); err != nil {
				return "", fmt.Errorf("toggle like: %w", err)
			}
			logg.Info("toggle", "Like removed (user IDs anonymized)")
			return StateUnliked, nil
		}

		// Lost both races: a concurrent toggle for the same pair completed a
		// full flip between our two attempts. Re-run the transition.
		logg.Debug("toggle", "Like toggle contention, retrying")
	}

	return "", fmt.Errorf("toggle like: contention not resolved after %d attempts", toggleRetries)
}

// ToggleFollow flips the follow relation for (followerID, followedID). No
// ledger or affinity side effects. Self-follow is not rejected.
func (t *Toggler) ToggleFollow(followerID, followedID string) (string, error) {
	if _, err := t.store.GetUser(followedID); err != nil {
		return "", fmt.Errorf("toggle follow: %w", err)
	}

	for attempt := 0; attempt < toggleRetries; attempt++ {
		applied, err := t.store.InsertFollow(followerID, followedID)
		if err != nil {
			return "", fmt.Errorf("toggle follow: %w", err)
		}
		if applied {
			logg.Info("toggle", "Follow added (user IDs anonymized)")
			return StateFollowed, nil
		}

		applied, err = t.store.DeleteFollow(followerID, followedID)
		if err != nil {
			return "", fmt.Errorf("toggle follow: %w", err)
		}
		if applied {
			logg.Info("toggle", "Follow removed (user IDs anonymized)")
			return StateUnfollowed, nil
		}

		logg.Debug("toggle", "Follow toggle contention, retrying")
	}

	return "", fmt.Errorf("toggle follow: contention not resolved after %d attempts", toggleRetries)
}
