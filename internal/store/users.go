package store

import (
	"example.com/engagefeed/internal/models"
	"github.com/gocql/gocql"
)

// GetUserIDByUsername returns the existing user_id by username.
// If the user does not exist, it returns empty string without an error.
func (s *Store) GetUserIDByUsername(username string) (string, error) {
	var id string
	err := s.Session.Query(
		`SELECT user_id FROM users_by_username WHERE username = ?`,
		username,
	).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return "", nil
		}
		logg.Error("store", "Failed to query user by username", err)
		return "", err
	}
	return id, nil
}

// CreateUser creates a new user if the username does not exist.
// Returns the existing user_id if username already exists.
func (s *Store) CreateUser(username, passwordHash string) (string, error) {
	existingID, err := s.GetUserIDByUsername(username)
	if err != nil {
		return "", err
	}
	if existingID != "" {
		return existingID, nil
	}

	// Generate a new UUID for user_id
	id := gocql.TimeUUID().String()

	// Insert into users_by_username table using CAS
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO users_by_username (username, user_id)
		VALUES (?, ?) IF NOT EXISTS`,
		username, id,
	).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to create username entry", err)
		return "", err
	}

	if !applied {
		// Another process already created this user
		return s.GetUserIDByUsername(username)
	}

	// Insert into main users table
	err = s.Session.Query(`
		INSERT INTO users (user_id, username, password_hash)
		VALUES (?, ?, ?)`,
		id, username, passwordHash,
	).Exec()
	if err != nil {
		logg.Error("store", "Failed to create user in main table", err)
		return "", err
	}

	logg.Info("store", "User created successfully (username anonymized)")
	return id, nil
}

// GetUser loads a full user row. Returns ErrNotFound for unknown ids.
func (s *Store) GetUser(userID string) (models.User, error) {
	u := models.User{ID: userID}
	err := s.Session.Query(`
		SELECT username, password_hash, bio, profile_image_url, preferred_tags
		FROM users WHERE user_id = ?`,
		userID,
	).Scan(&u.Username, &u.PasswordHash, &u.Bio, &u.ProfileImage, &u.PreferredTags)
	if err != nil {
		if err == gocql.ErrNotFound {
			return models.User{}, ErrNotFound
		}
		logg.Error("store", "Failed to query user", err)
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateBio(userID, bio string) error {
	if err := s.Session.Query(
		`UPDATE users SET bio = ? WHERE user_id = ?`,
		bio, userID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to update bio", err)
		return err
	}
	return nil
}

func (s *Store) UpdateProfileImage(userID, imageURL string) error {
	if err := s.Session.Query(
		`UPDATE users SET profile_image_url = ? WHERE user_id = ?`,
		imageURL, userID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to update profile image", err)
		return err
	}
	return nil
}

// AddPreferredTags unions tags into the user's affinity set. Set addition is
// naturally monotonic, so concurrent likes never lose tags.
func (s *Store) AddPreferredTags(userID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	if err := s.Session.Query(
		`UPDATE users SET preferred_tags = preferred_tags + ? WHERE user_id = ?`,
		tags, userID,
	).Exec(); err != nil {
		logg.Error("store", "Failed to add preferred tags", err)
		return err
	}
	logg.Info("store", "Preferred tags updated (user ID anonymized)")
	return nil
}
