package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"example.com/engagefeed/internal/models"
)

// MockStore simulates Cassandra operations for testing. Relation maps mimic
// the LWT applied/not-applied semantics, and posts keep insertion order so
// retrieval order is stable like a real token scan. Guarded by a mutex so
// concurrent-toggle tests behave like LWTs do.
type MockStore struct {
	mu sync.Mutex

	Users         map[string]models.User
	Posts         map[string]models.Post
	PostOrder     []string
	Comments      map[string][]models.Comment
	Likes         map[string]map[string]bool // userID -> postID
	Follows       map[string]map[string]bool // followerID -> followedID
	Interactions  []models.InteractionEvent
	Notifications map[string][]models.Notification

	ShouldFail bool // flag to simulate failures

	userCounter int
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{
		Users:         make(map[string]models.User),
		Posts:         make(map[string]models.Post),
		Comments:      make(map[string][]models.Comment),
		Likes:         make(map[string]map[string]bool),
		Follows:       make(map[string]map[string]bool),
		Notifications: make(map[string][]models.Notification),
	}
}

func (m *MockStore) Close() {}

func (m *MockStore) fail(op string) error {
	return errors.New("mock: " + op + " failed")
}

// --- Users ---

func (m *MockStore) CreateUser(username, passwordHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return "", m.fail("create user")
	}
	for id, u := range m.Users {
		if u.Username == username {
			return id, nil
		}
	}
	m.userCounter++
	id := fmt.Sprintf("user_%d", m.userCounter)
	m.Users[id] = models.User{ID: id, Username: username, PasswordHash: passwordHash}
	return id, nil
}

func (m *MockStore) GetUserIDByUsername(username string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return "", m.fail("get user by username")
	}
	for id, u := range m.Users {
		if u.Username == username {
			return id, nil
		}
	}
	return "", nil
}

func (m *MockStore) GetUser(userID string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.User{}, m.fail("get user")
	}
	u, ok := m.Users[userID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MockStore) UpdateBio(userID, bio string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return m.fail("update bio")
	}
	u := m.Users[userID]
	u.Bio = bio
	m.Users[userID] = u
	return nil
}

func (m *MockStore) UpdateProfileImage(userID, imageURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return m.fail("update profile image")
	}
	u := m.Users[userID]
	u.ProfileImage = imageURL
	m.Users[userID] = u
	return nil
}

func (m *MockStore) AddPreferredTags(userID string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return m.fail("add preferred tags")
	}
	u, ok := m.Users[userID]
	if !ok {
		return nil
	}
	for _, tag := range tags {
		seen := false
		for _, have := range u.PreferredTags {
			if have == tag {
				seen = true
				break
			}
		}
		if !seen {
			u.PreferredTags = append(u.PreferredTags, tag)
		}
	}
	m.Users[userID] = u
	return nil
}

// --- Posts ---

func (m *MockStore) AddPost(post models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return m.fail("add post")
	}
	if _, ok := m.Posts[post.ID]; !ok {
		m.PostOrder = append(m.PostOrder, post.ID)
	}
	m.Posts[post.ID] = post
	return nil
}

func (m *MockStore) GetPost(postID string) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.Post{}, m.fail("get post")
	}
	p, ok := m.Posts[postID]
	if !ok {
		return models.Post{}, ErrNotFound
	}
	return p, nil
}

func (m *MockStore) GetPosts(limit int) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, m.fail("get posts")
	}
	var res []models.Post
	for _, id := range m.PostOrder {
		res = append(res, m.Posts[id])
		if limit > 0 && len(res) >= limit {
			break
		}
	}
	return res, nil
}

func (m *MockStore) LikeCount(postID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return 0, m.fail("like count")
	}
	count := 0
	for _, posts := range m.Likes {
		if posts[postID] {
			count++
		}
	}
	return count, nil
}

// --- Comments ---

func (m *MockStore) AddComment(comment models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return m.fail("add comment")
	}
	m.Comments[comment.PostID] = append(m.Comments[comment.PostID], comment)
	return nil
}

func (m *MockStore) GetComments(postID string) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, m.fail("get comments")
	}
	return m.Comments[postID], nil
}

func (m *MockStore) CommentCount(postID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return 0, m.fail("comment count")
	}
	return len(m.Comments[postID]), nil
}

// --- Toggle relations ---

func (m *MockStore) InsertLike(userID, postID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, m.fail("insert like")
	}
	if m.Likes[userID] == nil {
		m.Likes[userID] = make(map[string]bool)
	}
	if m.Likes[userID][postID] {
		return false, nil
	}
	m.Likes[userID][postID] = true
	return true, nil
}

func (m *MockStore) DeleteLike(userID, postID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, m.fail("delete like")
	}
	if !m.Likes[userID][postID] {
		return false, nil
	}
	delete(m.Likes[userID], postID)
	return true, nil
}

func (m *MockStore) InsertFollow(followerID, followedID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, m.fail("insert follow")
	}
	if m.Follows[followerID] == nil {
		m.Follows[followerID] = make(map[string]bool)
	}
	if m.Follows[followerID][followedID] {
		return false, nil
	}
	m.Follows[followerID][followedID] = true
	return true, nil
}

func (m *MockStore) DeleteFollow(followerID, followedID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, m.fail("delete follow")
	}
	if !m.Follows[followerID][followedID] {
		return false, nil
	}
	delete(m.Follows[followerID], followedID)
	return true, nil
}

func (m *MockStore) FollowerCount(userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return 0, m.fail("follower count")
	}
	count := 0
	for _, followed := range m.Follows {
		if followed[userID] {
			count++
		}
	}
	return count, nil
}

// --- Interaction ledger ---

func (m *MockStore) AddInteraction(ev models.InteractionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return m.fail("add interaction")
	}
	m.Interactions = append(m.Interactions, ev)
	return nil
}

func (m *MockStore) RemoveInteraction(userID, postID, interactionType string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, m.fail("remove interaction")
	}
	for i, ev := range m.Interactions {
		if ev.UserID == userID && ev.PostID == postID && ev.Type == interactionType {
			m.Interactions = append(m.Interactions[:i], m.Interactions[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MockStore) HasInteracted(userID, postID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, m.fail("has interacted")
	}
	for _, ev := range m.Interactions {
		if ev.UserID == userID && ev.PostID == postID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockStore) CountInteractionsSince(postID, interactionType string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return 0, m.fail("count interactions")
	}
	count := 0
	for _, ev := range m.Interactions {
		if ev.PostID != postID || !ev.Created.After(since) {
			continue
		}
		if interactionType == "" || ev.Type == interactionType {
			count++
		}
	}
	return count, nil
}

// --- Notifications ---

func (m *MockStore) AddNotification(n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return m.fail("add notification")
	}
	m.Notifications[n.UserID] = append(m.Notifications[n.UserID], n)
	return nil
}

func (m *MockStore) GetNotifications(userID string, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, m.fail("get notifications")
	}
	res := m.Notifications[userID]
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// InteractionCount is a test helper: number of ledger events matching the
// given (user, post, type) triple.
func (m *MockStore) InteractionCount(userID, postID, interactionType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, ev := range m.Interactions {
		if ev.UserID == userID && ev.PostID == postID && ev.Type == interactionType {
			count++
		}
	}
	return count
}

// ---------------------------------------------
// MockStoreFail always returns errors for negative tests
type MockStoreFail struct{}

func (m *MockStoreFail) Close() {}

func (m *MockStoreFail) CreateUser(username, passwordHash string) (string, error) {
	return "", errors.New("mock store create user failed")
}

func (m *MockStoreFail) GetUserIDByUsername(username string) (string, error) {
	return "", errors.New("mock store get user by username failed")
}

func (m *MockStoreFail) GetUser(userID string) (models.User, error) {
	return models.User{}, errors.New("mock store get user failed")
}

func (m *MockStoreFail) UpdateBio(userID, bio string) error {
	return errors.New("mock store update bio failed")
}

func (m *MockStoreFail) UpdateProfileImage(userID, imageURL string) error {
	return errors.New("mock store update profile image failed")
}

func (m *MockStoreFail) AddPreferredTags(userID string, tags []string) error {
	return errors.New("mock store add preferred tags failed")
}

func (m *MockStoreFail) AddPost(post models.Post) error {
	return errors.New("mock store add post failed")
}

func (m *MockStoreFail) GetPost(postID string) (models.Post, error) {
	return models.Post{}, errors.New("mock store get post failed")
}

func (m *MockStoreFail) GetPosts(limit int) ([]models.Post, error) {
	return nil, errors.New("mock store get posts failed")
}

func (m *MockStoreFail) LikeCount(postID string) (int, error) {
	return 0, errors.New("mock store like count failed")
}

func (m *MockStoreFail) AddComment(comment models.Comment) error {
	return errors.New("mock store add comment failed")
}

func (m *MockStoreFail) GetComments(postID string) ([]models.Comment, error) {
	return nil, errors.New("mock store get comments failed")
}

func (m *MockStoreFail) CommentCount(postID string) (int, error) {
	return 0, errors.New("mock store comment count failed")
}

func (m *MockStoreFail) InsertLike(userID, postID string) (bool, error) {
	return false, errors.New("mock store insert like failed")
}

func (m *MockStoreFail) DeleteLike(userID, postID string) (bool, error) {
	return false, errors.New("mock store delete like failed")
}

func (m *MockStoreFail) InsertFollow(followerID, followedID string) (bool, error) {
	return false, errors.New("mock store insert follow failed")
}

func (m *MockStoreFail) DeleteFollow(followerID, followedID string) (bool, error) {
	return false, errors.New("mock store delete follow failed")
}

func (m *MockStoreFail) FollowerCount(userID string) (int, error) {
	return 0, errors.New("mock store follower count failed")
}

func (m *MockStoreFail) AddInteraction(ev models.InteractionEvent) error {
	return errors.New("mock store add interaction failed")
}

func (m *MockStoreFail) RemoveInteraction(userID, postID, interactionType string) (bool, error) {
	return false, errors.New("mock store remove interaction failed")
}

func (m *MockStoreFail) HasInteracted(userID, postID string) (bool, error) {
	return false, errors.New("mock store has interacted failed")
}

func (m *MockStoreFail) CountInteractionsSince(postID, interactionType string, since time.Time) (int, error) {
	return 0, errors.New("mock store count interactions failed")
}

func (m *MockStoreFail) AddNotification(n models.Notification) error {
	return errors.New("mock store add notification failed")
}

func (m *MockStoreFail) GetNotifications(userID string, limit int) ([]models.Notification, error) {
	return nil, errors.New("mock store get notifications failed")
}
