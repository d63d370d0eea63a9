package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	appkafka "example.com/engagefeed/internal/broker"
	"example.com/engagefeed/internal/engagement"
	"example.com/engagefeed/internal/middleware"
	"example.com/engagefeed/internal/models"
)

// --- HTTP Handlers: toggles, ledger, counts, recommendations ---

// publishEvent ships an engagement event to Kafka for the notification
// worker. Delivery is best effort: a failed publish never fails the request.
func (s *Server) publishEvent(eventType, actorID, targetUserID, postID string) {
	ev := models.EngagementEvent{
		Type:         eventType,
		ActorID:      actorID,
		TargetUserID: targetUserID,
		PostID:       postID,
		Created:      time.Now(),
	}

	msg, err := appkafka.EventMessage(ev)
	if err != nil {
		logg.Error("http/events", "Failed to marshal engagement event", err)
		return
	}
	if err := s.kafkaWriter.WriteMessages(msg); err != nil {
		logg.Error("http/events", "Failed to publish engagement event", err)
	}
}

// toggleLikeHandler flips the like state for (caller, post).
// Expects JSON body: {"post_id": "<id>"}
// Returns JSON response: {"state": "liked"|"unliked"}
func (s *Server) toggleLikeHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		PostID string `json:"post_id"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/likes", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	state, err := s.toggler.ToggleLike(userID, body.PostID)
	if err != nil {
		writeStoreError(w, "http/likes", "Failed to toggle like", err)
		return
	}

	if state == engagement.StateLiked {
		if post, err := s.store.GetPost(body.PostID); err == nil {
			s.publishEvent(models.EventLike, userID, post.AuthorID, post.ID)
		}
	}

	logg.Info("http/likes", "Like toggled to "+state+" by user_id="+userID)
	writeJSON(w, map[string]string{"state": state})
}

// toggleFollowHandler flips the follow state for (caller, followed user).
// Expects JSON body: {"followed_id": "<id>"}
// Returns JSON response: {"state": "followed"|"unfollowed"}
func (s *Server) toggleFollowHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		FollowedID string `json:"followed_id"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/follows", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	followerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	state, err := s.toggler.ToggleFollow(followerID, body.FollowedID)
	if err != nil {
		writeStoreError(w, "http/follows", "Failed to toggle follow", err)
		return
	}

	if state == engagement.StateFollowed {
		s.publishEvent(models.EventFollow, followerID, body.FollowedID, "")
	}

	logg.Info("http/follows", "Follow toggled to "+state+" by user_id="+followerID)
	writeJSON(w, map[string]string{"state": state})
}

// addViewsHandler records one view event per existing post in the list.
// Expects JSON body: {"post_ids": ["<id>", ...]} (must be non-empty)
// Returns JSON response: {"recorded": <count>}
func (s *Server) addViewsHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		PostIDs []string `json:"post_ids"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/views", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	recorded, err := s.ledger.RecordBatch(userID, body.PostIDs, models.InteractionView, time.Now())
	if err != nil {
		writeStoreError(w, "http/views", "Failed to record views", err)
		return
	}

	logg.Info("http/views", "Views recorded for user_id="+userID)
	writeJSON(w, map[string]int{"recorded": recorded})
}

// likeCountHandler returns a post's like count.
// Query parameters: ?post_id=<id>
func (s *Server) likeCountHandler(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("post_id")

	if _, err := s.store.GetPost(postID); err != nil {
		writeStoreError(w, "http/likes", "Failed to load post", err)
		return
	}

	count, err := s.store.LikeCount(postID)
	if err != nil {
		writeStoreError(w, "http/likes", "Failed to count likes", err)
		return
	}

	writeJSON(w, map[string]int{"count": count})
}

// followCountHandler returns a user's follower count.
// Query parameters: ?user_id=<id>
func (s *Server) followCountHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	if _, err := s.store.GetUser(userID); err != nil {
		writeStoreError(w, "http/follows", "Failed to load user", err)
		return
	}

	count, err := s.store.FollowerCount(userID)
	if err != nil {
		writeStoreError(w, "http/follows", "Failed to count followers", err)
		return
	}

	writeJSON(w, map[string]int{"count": count})
}

// recommendationsHandler returns the caller's personalized feed.
// Query parameters: ?limit=10
func (s *Server) recommendationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	feed, err := s.engine.Generate(userID, limit)
	if err != nil {
		writeStoreError(w, "http/recommendations", "Failed to generate feed for user_id="+userID, err)
		return
	}

	logg.Info("http/recommendations", "Feed generated for user_id="+userID)
	writeJSON(w, feed)
}

// notificationsHandler returns the caller's materialized notifications.
// Query parameters: ?limit=50
func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	notifications, err := s.store.GetNotifications(userID, limit)
	if err != nil {
		writeStoreError(w, "http/notifications", "Failed to list notifications", err)
		return
	}

	writeJSON(w, notifications)
}
