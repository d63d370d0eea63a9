package store

import (
	"example.com/engagefeed/internal/models"
)

func (s *Store) AddComment(comment models.Comment) error {
	if err := s.Session.Query(`
		INSERT INTO comments (post_id, created_at, comment_id, user_id, body)
		VALUES (?, ?, ?, ?, ?)`,
		comment.PostID, comment.Created, comment.ID, comment.UserID, comment.Body,
	).Exec(); err != nil {
		logg.Error("store", "Failed to add comment", err)
		return err
	}

	logg.Info("store", "Comment added (comment content anonymized)")
	return nil
}

// GetComments returns a post's comments, newest first.
func (s *Store) GetComments(postID string) ([]models.Comment, error) {
	iter := s.Session.Query(`
		SELECT comment_id, user_id, body, created_at
		FROM comments WHERE post_id = ?`,
		postID,
	).Iter()

	var res []models.Comment
	c := models.Comment{PostID: postID}
	for iter.Scan(&c.ID, &c.UserID, &c.Body, &c.Created) {
		res = append(res, c)
		c = models.Comment{PostID: postID}
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list comments", err)
		return nil, err
	}
	return res, nil
}

func (s *Store) CommentCount(postID string) (int, error) {
	var count int
	err := s.Session.Query(
		`SELECT COUNT(*) FROM comments WHERE post_id = ?`,
		postID,
	).Scan(&count)
	if err != nil {
		logg.Error("store", "Failed to count comments", err)
		return 0, err
	}
	return count, nil
}
