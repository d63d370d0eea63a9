package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"example.com/engagefeed/internal/middleware"
	"example.com/engagefeed/internal/models"
	"example.com/engagefeed/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// --- HTTP Handlers: users, profiles, posts, comments ---

// writeStoreError maps domain errors to HTTP statuses. Storage failures are
// logged but surfaced as a generic internal error.
func writeStoreError(w http.ResponseWriter, module, msg string, err error) {
	logg.Error(module, msg, err)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// issueToken signs a 24h JWT carrying the user id.
func issueToken(userID string) (string, error) {
	secret := []byte(os.Getenv("JWT_SECRET"))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour * 24).Unix(),
	})
	return token.SignedString(secret)
}

// createUserHandler handles POST requests to register a new user.
// Expects JSON body: {"username": "example", "password": "secret"}
// Returns JSON response: {"user_id": <id>, "token": <jwt>}
func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/users", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(body.Username) == 0 || len(body.Username) > 50 {
		logg.Info("http/users", "Invalid username length")
		http.Error(w, "username must be 1-50 characters", http.StatusBadRequest)
		return
	}
	if len(body.Password) == 0 || len(body.Password) > 72 {
		logg.Info("http/users", "Invalid password length")
		http.Error(w, "password must be 1-72 characters", http.StatusBadRequest)
		return
	}

	existingID, err := s.store.GetUserIDByUsername(body.Username)
	if err != nil {
		writeStoreError(w, "http/users", "Failed to query existing username", err)
		return
	}
	if existingID != "" {
		logg.Info("http/users", "Username already taken")
		http.Error(w, "username already exists", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		logg.Error("http/users", "Failed to hash password", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	userID, err := s.store.CreateUser(body.Username, string(hash))
	if err != nil {
		writeStoreError(w, "http/users", "Failed to create user", err)
		return
	}
	logg.Info("http/users", "User created successfully with user_id="+userID)

	tokenStr, err := issueToken(userID)
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"user_id": userID,
		"token":   tokenStr,
	})
}

// loginHandler verifies credentials and issues a fresh JWT.
// Expects JSON body: {"username": "example", "password": "secret"}
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/login", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, err := s.store.GetUserIDByUsername(body.Username)
	if err != nil {
		writeStoreError(w, "http/login", "Failed to query username", err)
		return
	}
	if userID == "" {
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		writeStoreError(w, "http/login", "Failed to load user", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		logg.Info("http/login", "Failed login attempt (username anonymized)")
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	tokenStr, err := issueToken(userID)
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"user_id": userID,
		"token":   tokenStr,
	})
}

// editBioHandler updates the caller's bio.
// Expects JSON body: {"bio": "text"}
func (s *Server) editBioHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		Bio string `json:"bio"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/bio", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := s.store.GetUser(userID); err != nil {
		writeStoreError(w, "http/bio", "Failed to load user", err)
		return
	}

	if err := s.store.UpdateBio(userID, body.Bio); err != nil {
		writeStoreError(w, "http/bio", "Failed to update bio", err)
		return
	}

	writeJSON(w, map[string]any{"message": "bio updated"})
}

// profileImageHandler uploads the caller's profile image via the media
// collaborator and stores the returned URL.
// Expects multipart form data with an "image" file.
func (s *Server) profileImageHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		logg.Error("http/profile", "No image uploaded", err)
		http.Error(w, "no image uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	imageURL, err := s.uploader.Upload(file, header.Header.Get("Content-Type"))
	if err != nil {
		logg.Error("http/profile", "Failed to upload image", err)
		http.Error(w, "failed to upload image", http.StatusInternalServerError)
		return
	}

	if _, err := s.store.GetUser(userID); err != nil {
		writeStoreError(w, "http/profile", "Failed to load user", err)
		return
	}

	if err := s.store.UpdateProfileImage(userID, imageURL); err != nil {
		writeStoreError(w, "http/profile", "Failed to store image URL", err)
		return
	}

	writeJSON(w, map[string]any{"image_url": imageURL})
}

// postsHandler dispatches POST (create) and GET (list with counts).
func (s *Server) postsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createPostHandler(w, r)
	case http.MethodGet:
		s.listPostsHandler(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// createPostHandler stores a new immutable post; an optional base64 image is
// shipped to the media collaborator first.
// Expects JSON body: {"body": "content", "tags": ["science"], "image_base64": "..."}
func (s *Server) createPostHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		Body        string   `json:"body"`
		Tags        []string `json:"tags"`
		ImageBase64 string   `json:"image_base64"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/posts", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if len(body.Body) == 0 || len(body.Body) > 1000 {
		logg.Info("http/posts", "Post body length invalid for user_id="+userID)
		http.Error(w, "post body must be 1-1000 characters", http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		writeStoreError(w, "http/posts", "Failed to load author", err)
		return
	}

	var imageURL string
	if body.ImageBase64 != "" {
		raw, err := base64.StdEncoding.DecodeString(body.ImageBase64)
		if err != nil {
			http.Error(w, "invalid image encoding", http.StatusBadRequest)
			return
		}
		imageURL, err = s.uploader.Upload(bytes.NewReader(raw), "image/jpeg")
		if err != nil {
			logg.Error("http/posts", "Failed to upload post image", err)
			http.Error(w, "failed to upload image", http.StatusInternalServerError)
			return
		}
	}

	post := models.Post{
		ID:         uuid.NewString(),
		AuthorID:   userID,
		AuthorName: user.Username,
		Body:       body.Body,
		ImageURL:   imageURL,
		Tags:       body.Tags,
		Created:    time.Now(),
	}

	if err := s.store.AddPost(post); err != nil {
		writeStoreError(w, "http/posts", "Failed to save post", err)
		return
	}

	logg.Info("http/posts", "Post created successfully by user_id="+userID)
	writeJSON(w, post)
}

// listPostsHandler returns every post with its like and comment counts.
func (s *Server) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	type postDetails struct {
		Post     models.Post      `json:"post"`
		Likes    int              `json:"likes"`
		Comments []models.Comment `json:"comments"`
	}

	posts, err := s.store.GetPosts(0)
	if err != nil {
		writeStoreError(w, "http/posts", "Failed to list posts", err)
		return
	}

	details := make([]postDetails, 0, len(posts))
	for _, post := range posts {
		likes, err := s.store.LikeCount(post.ID)
		if err != nil {
			writeStoreError(w, "http/posts", "Failed to count likes", err)
			return
		}
		comments, err := s.store.GetComments(post.ID)
		if err != nil {
			writeStoreError(w, "http/posts", "Failed to list comments", err)
			return
		}
		details = append(details, postDetails{Post: post, Likes: likes, Comments: comments})
	}

	writeJSON(w, details)
}

// createCommentHandler stores a comment, appends a "comment" ledger event and
// notifies the post author.
// Expects JSON body: {"post_id": "<id>", "body": "text"}
func (s *Server) createCommentHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		PostID string `json:"post_id"`
		Body   string `json:"body"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/comments", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if len(body.Body) == 0 {
		http.Error(w, "comment body must not be empty", http.StatusBadRequest)
		return
	}

	post, err := s.store.GetPost(body.PostID)
	if err != nil {
		writeStoreError(w, "http/comments", "Failed to load post", err)
		return
	}

	now := time.Now()
	comment := models.Comment{
		ID:      uuid.NewString(),
		PostID:  post.ID,
		UserID:  userID,
		Body:    body.Body,
		Created: now,
	}

	if err := s.store.AddComment(comment); err != nil {
		writeStoreError(w, "http/comments", "Failed to save comment", err)
		return
	}

	if err := s.ledger.Record(userID, post.ID, models.InteractionComment, now); err != nil {
		writeStoreError(w, "http/comments", "Failed to record comment interaction", err)
		return
	}

	s.publishEvent(models.EventComment, userID, post.AuthorID, post.ID)

	logg.Info("http/comments", "Comment created by user_id="+userID)
	writeJSON(w, comment)
}
