package models

import "time"

// Interaction types recorded in the ledger.
const (
	InteractionView    = "view"
	InteractionLike    = "like"
	InteractionComment = "comment"
)

// Engagement event types published to Kafka for the notification worker.
const (
	EventLike    = "like"
	EventFollow  = "follow"
	EventComment = "comment"
)

type User struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	PasswordHash  string   `json:"-"`
	Bio           string   `json:"bio,omitempty"`
	ProfileImage  string   `json:"profile_image_url,omitempty"`
	PreferredTags []string `json:"preferred_tags,omitempty"`
}

type Post struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	ImageURL   string    `json:"image_url,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Created    time.Time `json:"created"`
}

type Comment struct {
	ID      string    `json:"id"`
	PostID  string    `json:"post_id"`
	UserID  string    `json:"user_id"`
	Body    string    `json:"body"`
	Created time.Time `json:"created"`
}

// InteractionEvent is one row of the append-only interaction ledger.
// Like events may be removed again on unlike; view and comment events are permanent.
type InteractionEvent struct {
	UserID  string    `json:"user_id"`
	PostID  string    `json:"post_id"`
	Type    string    `json:"type"`
	Created time.Time `json:"created"`
}

type Notification struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Type    string    `json:"type"`
	ActorID string    `json:"actor_id"`
	PostID  string    `json:"post_id,omitempty"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
}

// EngagementEvent is the Kafka payload emitted by the server on positive
// engagement transitions and consumed by the notification worker.
type EngagementEvent struct {
	Type         string    `json:"type"`
	ActorID      string    `json:"actor_id"`
	TargetUserID string    `json:"target_user_id"`
	PostID       string    `json:"post_id,omitempty"`
	Created      time.Time `json:"created"`
}
