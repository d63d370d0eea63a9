package store

import (
	"time"

	"example.com/engagefeed/internal/models"
	"github.com/gocql/gocql"
)

// The interaction ledger is append-only and kept in two tables:
// interactions_by_user for (user, post) lookups and targeted removal,
// interactions_by_post clustered by time for windowed counts.

// AddInteraction appends one ledger event to both tables in a logged batch.
func (s *Store) AddInteraction(ev models.InteractionEvent) error {
	eventID := gocql.TimeUUID()

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		INSERT INTO interactions_by_user (user_id, post_id, interaction_type, event_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.UserID, ev.PostID, ev.Type, eventID, ev.Created)
	batch.Query(`
		INSERT INTO interactions_by_post (post_id, created_at, event_id, user_id, interaction_type)
		VALUES (?, ?, ?, ?, ?)`,
		ev.PostID, ev.Created, eventID, ev.UserID, ev.Type)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to append interaction event", err)
		return err
	}
	return nil
}

// RemoveInteraction deletes at most one event matching (userID, postID, type).
// Returns false when no such event exists. Used only by the unlike path.
func (s *Store) RemoveInteraction(userID, postID, interactionType string) (bool, error) {
	var eventID gocql.UUID
	var createdAt time.Time
	err := s.Session.Query(`
		SELECT event_id, created_at FROM interactions_by_user
		WHERE user_id = ? AND post_id = ? AND interaction_type = ? LIMIT 1`,
		userID, postID, interactionType,
	).Scan(&eventID, &createdAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		logg.Error("store", "Failed to locate interaction event", err)
		return false, err
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		DELETE FROM interactions_by_user
		WHERE user_id = ? AND post_id = ? AND interaction_type = ? AND event_id = ?`,
		userID, postID, interactionType, eventID)
	batch.Query(`
		DELETE FROM interactions_by_post
		WHERE post_id = ? AND created_at = ? AND event_id = ?`,
		postID, createdAt, eventID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to remove interaction event", err)
		return false, err
	}
	return true, nil
}

// HasInteracted reports whether any event exists for the (user, post) pair,
// regardless of type.
func (s *Store) HasInteracted(userID, postID string) (bool, error) {
	var found string
	err := s.Session.Query(`
		SELECT post_id FROM interactions_by_user
		WHERE user_id = ? AND post_id = ? LIMIT 1`,
		userID, postID,
	).Scan(&found)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		logg.Error("store", "Failed to check interaction existence", err)
		return false, err
	}
	return true, nil
}

// CountInteractionsSince counts a post's events newer than since. An empty
// interactionType counts all types; the type filter runs client side because
// interaction_type is not part of the clustering key.
func (s *Store) CountInteractionsSince(postID, interactionType string, since time.Time) (int, error) {
	iter := s.Session.Query(`
		SELECT interaction_type FROM interactions_by_post
		WHERE post_id = ? AND created_at > ?`,
		postID, since,
	).Iter()

	var typ string
	count := 0
	for iter.Scan(&typ) {
		if interactionType == "" || typ == interactionType {
			count++
		}
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to count interactions", err)
		return 0, err
	}
	return count, nil
}
