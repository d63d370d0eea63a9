package store

// Like and Follow relations are each kept in two tables: one keyed by the
// actor for the pair-uniqueness guard, one keyed by the target for counting.
// The actor-keyed write is a lightweight transaction; its applied flag is the
// toggle state machine's atomic transition. The mirror write is plain -- it
// only feeds counters, and counter reads are allowed to skew.

// InsertLike transitions (userID, postID) to "liked". Returns false when the
// pair already exists.
func (s *Store) InsertLike(userID, postID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO likes_by_user (user_id, post_id)
		VALUES (?, ?) IF NOT EXISTS`,
		userID, postID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to insert like", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	if err := s.Session.Query(
		`INSERT INTO likes_by_post (post_id, user_id) VALUES (?, ?)`,
		postID, userID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to mirror like", err)
		return false, err
	}

	logg.Info("store", "Like relation created (user IDs anonymized)")
	return true, nil
}

// DeleteLike transitions (userID, postID) to "unliked". Returns false when
// the pair does not exist.
func (s *Store) DeleteLike(userID, postID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		DELETE FROM likes_by_user WHERE user_id = ? AND post_id = ? IF EXISTS`,
		userID, postID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to delete like", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	if err := s.Session.Query(
		`DELETE FROM likes_by_post WHERE post_id = ? AND user_id = ?`,
		postID, userID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to remove like mirror", err)
		return false, err
	}

	logg.Info("store", "Like relation removed (user IDs anonymized)")
	return true, nil
}

// InsertFollow transitions (followerID, followedID) to "following".
func (s *Store) InsertFollow(followerID, followedID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO follows (user_id, followee_id)
		VALUES (?, ?) IF NOT EXISTS`,
		followerID, followedID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to insert follow", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	if err := s.Session.Query(
		`INSERT INTO followers_by_followee (followee_id, user_id) VALUES (?, ?)`,
		followedID, followerID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to mirror follow", err)
		return false, err
	}

	logg.Info("store", "Follow relation created (user IDs anonymized)")
	return true, nil
}

// DeleteFollow transitions (followerID, followedID) to "not following".
func (s *Store) DeleteFollow(followerID, followedID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		DELETE FROM follows WHERE user_id = ? AND followee_id = ? IF EXISTS`,
		followerID, followedID,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to delete follow", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	if err := s.Session.Query(
		`DELETE FROM followers_by_followee WHERE followee_id = ? AND user_id = ?`,
		followedID, followerID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to remove follow mirror", err)
		return false, err
	}

	logg.Info("store", "Follow relation removed (user IDs anonymized)")
	return true, nil
}

func (s *Store) FollowerCount(userID string) (int, error) {
	var count int
	err := s.Session.Query(
		`SELECT COUNT(*) FROM followers_by_followee WHERE followee_id = ?`,
		userID,
	).Scan(&count)
	if err != nil {
		logg.Error("store", "Failed to count followers", err)
		return 0, err
	}
	return count, nil
}
