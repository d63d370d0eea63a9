package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	appkafka "example.com/engagefeed/internal/broker"
	"example.com/engagefeed/internal/media"
	"example.com/engagefeed/internal/models"
	"example.com/engagefeed/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

//
// --- Helpers ---
//

// generate JWT token for test user
func makeTestJWT(userID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	tokenStr, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return tokenStr
}

// create HTTP request with JWT token
func sendJSONRequest(t *testing.T, method, url string, body any, token string, expectedStatus int) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != expectedStatus {
		b, _ := io.ReadAll(resp.Body)
		defer resp.Body.Close()
		t.Fatalf("expected %d, got %d: %s", expectedStatus, resp.StatusCode, string(b))
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return out
}

//
// --- Setup test server ---
//

func setupTestServer(t *testing.T) (*Server, *store.MockStore, *appkafka.MockKafka, *httptest.Server) {
	t.Helper()
	os.Setenv("JWT_SECRET", "test-secret")

	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafka{}
	s := newServer(mockStore, mockKafka, &media.MockUploader{})

	return s, mockStore, mockKafka, httptest.NewServer(s.routes())
}

// helper: create user directly in the store with a real bcrypt hash
func createTestUser(t *testing.T, st *store.MockStore, username, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	id, err := st.CreateUser(username, string(hash))
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return id
}

// helper: create a post directly in the store
func createTestPost(t *testing.T, st *store.MockStore, id string, tags ...string) models.Post {
	t.Helper()
	post := models.Post{
		ID:       id,
		AuthorID: "author",
		Body:     "post " + id,
		Tags:     tags,
		Created:  time.Now(),
	}
	if err := st.AddPost(post); err != nil {
		t.Fatalf("AddPost failed: %v", err)
	}
	return post
}

//
// --- Tests ---
//

// register a new user
func TestCreateUser(t *testing.T) {
	_, _, _, ts := setupTestServer(t)
	defer ts.Close()

	resp := sendJSONRequest(t, http.MethodPost, ts.URL+"/users",
		map[string]any{"username": "almaz", "password": "secret123"}, "", http.StatusOK)
	res := decodeJSON[map[string]any](t, resp)

	if res["user_id"] == "" || res["user_id"] == nil {
		t.Fatalf("expected non-empty user ID, got %v", res)
	}
	if res["token"] == "" || res["token"] == nil {
		t.Fatalf("expected token in response, got %v", res)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	_, st, _, ts := setupTestServer(t)
	defer ts.Close()

	createTestUser(t, st, "almaz", "secret123")
	sendJSONRequest(t, http.MethodPost, ts.URL+"/users",
		map[string]any{"username": "almaz", "password": "secret123"}, "", http.StatusBadRequest)
}

func TestLogin(t *testing.T) {
	_, st, _, ts := setupTestServer(t)
	defer ts.Close()

	createTestUser(t, st, "almaz", "secret123")

	resp := sendJSONRequest(t, http.MethodPost, ts.URL+"/login",
		map[string]any{"username": "almaz", "password": "secret123"}, "", http.StatusOK)
	res := decodeJSON[map[string]any](t, resp)
	if res["token"] == "" || res["token"] == nil {
		t.Fatalf("expected token, got %v", res)
	}

	sendJSONRequest(t, http.MethodPost, ts.URL+"/login",
		map[string]any{"username": "almaz", "password": "wrong"}, "", http.StatusUnauthorized)
	sendJSONRequest(t, http.MethodPost, ts.URL+"/login",
		map[string]any{"username": "ghost", "password": "secret123"}, "", http.StatusUnauthorized)
}

// full toggle flow: like -> unlike over HTTP, with a notification event
// published on the positive transition only
func TestToggleLikeFlow(t *testing.T) {
	_, st, mockKafka, ts := setupTestServer(t)
	defer ts.Close()

	userID := createTestUser(t, st, "almaz", "secret123")
	createTestPost(t, st, "p1", "science")
	token := makeTestJWT(userID)

	resp := sendJSONRequest(t, http.MethodPost, ts.URL+"/likes/toggle",
		map[string]any{"post_id": "p1"}, token, http.StatusOK)
	res := decodeJSON[map[string]string](t, resp)
	if res["state"] != "liked" {
		t.Fatalf("expected liked, got %q", res["state"])
	}

	if len(mockKafka.Written()) != 1 {
		t.Fatalf("expected 1 engagement event, got %d", len(mockKafka.Written()))
	}

	resp = sendJSONRequest(t, http.MethodPost, ts.URL+"/likes/toggle",
		map[string]any{"post_id": "p1"}, token, http.StatusOK)
	res = decodeJSON[map[string]string](t, resp)
	if res["state"] != "unliked" {
		t.Fatalf("expected unliked, got %q", res["state"])
	}

	// Unlike publishes nothing.
	if len(mockKafka.Written()) != 1 {
		t.Fatalf("expected no event on unlike, got %d total", len(mockKafka.Written()))
	}
}

func TestToggleLike_MissingPost(t *testing.T) {
	_, st, _, ts := setupTestServer(t)
	defer ts.Close()

	userID := createTestUser(t, st, "almaz", "secret123")
	token := makeTestJWT(userID)

	sendJSONRequest(t, http.MethodPost, ts.URL+"/likes/toggle",
		map[string]any{"post_id": "missing"}, token, http.StatusNotFound)
}

func TestToggleFollowFlow(t *testing.T) {
	_, st, _, ts := setupTestServer(t)
	defer ts.Close()

	almazID := createTestUser(t, st, "almaz", "secret123")
	nurID := createTestUser(t, st, "nur", "secret123")
	token := makeTestJWT(almazID)

	resp := sendJSONRequest(t, http.MethodPost, ts.URL+"/follows/toggle",
		map[string]any{"followed_id": nurID}, token, http.StatusOK)
	res := decodeJSON[map[string]string](t, resp)
	if res["state"] != "followed" {
		t.Fatalf("expected followed, got %q", res["state"])
	}

	resp = sendJSONRequest(t, http.MethodPost, ts.URL+"/follows/toggle",
		map[string]any{"followed_id": nurID}, token, http.StatusOK)
	res = decodeJSON[map[string]string](t, resp)
	if res["state"] != "unfollowed" {
		t.Fatalf("expected unfollowed, got %q", res["state"])
	}
}

// batch views: missing posts are skipped, count reflects appended events
func TestAddViews_PartialValidity(t *testing.T) {
	_, st, _, ts := setupTestServer(t)
	defer ts.Close()

	userID := createTestUser(t, st, "almaz", "secret123")
	createTestPost(t, st, "p1")
	createTestPost(t, st, "p3")
	token := makeTestJWT(userID)

	resp := sendJSONRequest(t, http.MethodPost, ts.URL+"/views",
		map[string]any{"post_ids": []string{"p1", "p2-missing", "p3"}}, token, http.StatusOK)
	res := decodeJSON[map[string]int](t, resp)
	if res["recorded"] != 2 {
		t.Fatalf("expected 2 recorded views, got %d", res["recorded"])
	}
}

func TestAddViews_EmptyList(t *testing.T) {
	_, st, _, ts := setupTestServer(t)
	defer ts.Close()

	userID := createTestUser(t, st, "almaz", "secret123")
	token := makeTestJWT(userID)

	sendJSONRequest(t, http.MethodPost, ts.URL+"/views",
		map[string]any{"post_ids": []string{}}, token, http.StatusBadRequest)
}

func TestCreateComment(t *testing.T) {
	_, st, mockKafka, ts := setupTestServer(t)
	defer ts.Close()

	userID := createTestUser(t, st, "almaz", "secret123")
	createTestPost(t, st, "p1")
	token := makeTestJWT(userID)

	resp := sendJSONRequest(t, http.MethodPost, ts.URL+"/comments",
		map[string]any{"post_id": "p1", "body": "nice one"}, token, http.StatusOK)
	comment := decodeJSON[models.Comment](t, resp)
	if comment.Body != "nice one" {
		t.Fatalf("unexpected comment: %+v", comment)
	}

	// Comment is both a ledger event and a notification event.
	if got := st.InteractionCount(userID, "p1", models.InteractionComment); got != 1 {
		t.Fatalf("expected 1 comment interaction, got %d", got)
	}
	if len(mockKafka.Written()) != 1 {
		t.Fatalf("expected 1 engagement event, got %d", len(mockKafka.Written()))
	}
}

func TestRecommendations(t *testing.T) {
	_, st, _, ts := setupTestServer(t)
	defer ts.Close()

	userID := createTestUser(t, st, "almaz", "secret123")
	st.AddPreferredTags(userID, []string{"science"})
	createTestPost(t, st, "p1", "science")
	token := makeTestJWT(userID)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/recommendations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	feed := decodeJSON[[]models.Post](t, resp)
	if len(feed) != 1 || feed[0].ID != "p1" {
		t.Fatalf("expected [p1], got %v", feed)
	}
}

func TestRecommendations_Unauthorized(t *testing.T) {
	_, _, _, ts := setupTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/recommendations")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLikeCountEndpoint(t *testing.T) {
	_, st, _, ts := setupTestServer(t)
	defer ts.Close()

	userID := createTestUser(t, st, "almaz", "secret123")
	createTestPost(t, st, "p1")
	st.InsertLike("someone", "p1")
	token := makeTestJWT(userID)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/likes/count?post_id=p1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	res := decodeJSON[map[string]int](t, resp)
	if res["count"] != 1 {
		t.Fatalf("expected count 1, got %d", res["count"])
	}
}

// invalid JSON for register
func TestCreateUser_InvalidJSON(t *testing.T) {
	_, _, _, ts := setupTestServer(t)
	defer ts.Close()

	body := []byte(`{"username":123}`)
	resp, err := http.Post(ts.URL+"/users", "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("http.Post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// Kafka write errors never fail the toggle request
func TestToggleLike_KafkaWriteErrorIgnored(t *testing.T) {
	s, st, _, ts := setupTestServer(t)
	defer ts.Close()
	s.kafkaWriter = &appkafka.MockKafkaFail{}

	userID := createTestUser(t, st, "almaz", "secret123")
	createTestPost(t, st, "p1")
	token := makeTestJWT(userID)

	resp := sendJSONRequest(t, http.MethodPost, ts.URL+"/likes/toggle",
		map[string]any{"post_id": "p1"}, token, http.StatusOK)
	res := decodeJSON[map[string]string](t, resp)
	if res["state"] != "liked" {
		t.Fatalf("expected liked despite Kafka failure, got %q", res["state"])
	}
}

// Store failures surface as generic internal errors
func TestStoreFailure(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	s := newServer(&store.MockStoreFail{}, &appkafka.MockKafka{}, &media.MockUploader{})
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	token := makeTestJWT("u1")
	sendJSONRequest(t, http.MethodPost, ts.URL+"/views",
		map[string]any{"post_ids": []string{"p1"}}, token, http.StatusInternalServerError)
}
