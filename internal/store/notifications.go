package store

import (
	"example.com/engagefeed/internal/models"
)

func (s *Store) AddNotification(n models.Notification) error {
	if err := s.Session.Query(`
		INSERT INTO notifications (user_id, created_at, notification_id, type, actor_id, post_id, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, n.Created, n.ID, n.Type, n.ActorID, n.PostID, n.Message,
	).Exec(); err != nil {
		logg.Error("store", "Failed to add notification", err)
		return err
	}

	logg.Info("store", "Notification stored (user IDs anonymized)")
	return nil
}

// GetNotifications returns a user's notifications, newest first.
func (s *Store) GetNotifications(userID string, limit int) ([]models.Notification, error) {
	iter := s.Session.Query(`
		SELECT notification_id, type, actor_id, post_id, message, created_at
		FROM notifications WHERE user_id = ? LIMIT ?`,
		userID, limit,
	).Iter()

	var res []models.Notification
	n := models.Notification{UserID: userID}
	for iter.Scan(&n.ID, &n.Type, &n.ActorID, &n.PostID, &n.Message, &n.Created) {
		res = append(res, n)
		n = models.Notification{UserID: userID}
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list notifications", err)
		return nil, err
	}
	return res, nil
}
