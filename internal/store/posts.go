package store

import (
	"example.com/engagefeed/internal/models"
	"github.com/gocql/gocql"
)

func (s *Store) AddPost(post models.Post) error {
	if err := s.Session.Query(`
		INSERT INTO posts (post_id, author_id, author_name, body, image_url, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.AuthorID, post.AuthorName, post.Body, post.ImageURL, post.Tags, post.Created,
	).Exec(); err != nil {
		logg.Error("store", "Failed to add post", err)
		return err
	}

	logg.Info("store", "Post added to posts table (post content anonymized)")
	return nil
}

// GetPost returns ErrNotFound for unknown post ids; toggles and the ledger
// use it as their existence check.
func (s *Store) GetPost(postID string) (models.Post, error) {
	p := models.Post{ID: postID}
	err := s.Session.Query(`
		SELECT author_id, author_name, body, image_url, tags, created_at
		FROM posts WHERE post_id = ?`,
		postID,
	).Scan(&p.AuthorID, &p.AuthorName, &p.Body, &p.ImageURL, &p.Tags, &p.Created)
	if err != nil {
		if err == gocql.ErrNotFound {
			return models.Post{}, ErrNotFound
		}
		logg.Error("store", "Failed to query post", err)
		return models.Post{}, err
	}
	return p, nil
}

// GetPosts returns posts in storage retrieval order (token order, arbitrary
// but stable). limit <= 0 means no limit.
func (s *Store) GetPosts(limit int) ([]models.Post, error) {
	stmt := `SELECT post_id, author_id, author_name, body, image_url, tags, created_at FROM posts`
	var iter *gocql.Iter
	if limit > 0 {
		iter = s.Session.Query(stmt+` LIMIT ?`, limit).Iter()
	} else {
		iter = s.Session.Query(stmt).Iter()
	}

	var res []models.Post
	var p models.Post
	for iter.Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Body, &p.ImageURL, &p.Tags, &p.Created) {
		res = append(res, p)
		p = models.Post{}
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list posts", err)
		return nil, err
	}
	return res, nil
}

func (s *Store) LikeCount(postID string) (int, error) {
	var count int
	err := s.Session.Query(
		`SELECT COUNT(*) FROM likes_by_post WHERE post_id = ?`,
		postID,
	).Scan(&count)
	if err != nil {
		logg.Error("store", "Failed to count likes", err)
		return 0, err
	}
	return count, nil
}
