package engagement

import (
	"errors"
	"testing"

	"example.com/engagefeed/internal/models"
	"example.com/engagefeed/internal/store"
)

func newToggler(st store.StoreInterface) *Toggler {
	ledger := NewLedger(st)
	return NewToggler(st, ledger, NewTracker(st))
}

// Toggling twice returns the pair to its original state and leaves the
// ledger's like event count unchanged net.
func TestToggleLike_Involution(t *testing.T) {
	st := store.NewMock()
	toggler := newToggler(st)
	userID, _ := st.CreateUser("almaz", "hash")
	addPost(t, st, "p1", "science")

	state, err := toggler.ToggleLike(userID, "p1")
	if err != nil {
		t.Fatalf("first toggle failed: %v", err)
	}
	if state != StateLiked {
		t.Fatalf("expected %q, got %q", StateLiked, state)
	}
	if got := st.InteractionCount(userID, "p1", models.InteractionLike); got != 1 {
		t.Fatalf("expected 1 like event after like, got %d", got)
	}

	state, err = toggler.ToggleLike(userID, "p1")
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if state != StateUnliked {
		t.Fatalf("expected %q, got %q", StateUnliked, state)
	}

	if st.Likes[userID]["p1"] {
		t.Fatal("expected like relation removed after involution")
	}
	if got := st.InteractionCount(userID, "p1", models.InteractionLike); got != 0 {
		t.Fatalf("expected 0 like events after involution, got %d", got)
	}
}

func TestToggleLike_PostNotFound(t *testing.T) {
	st := store.NewMock()
	toggler := newToggler(st)
	userID, _ := st.CreateUser("almaz", "hash")

	_, err := toggler.ToggleLike(userID, "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Affinity only grows: unlike never removes learned tags, repeated cycles
// never shrink the set.
func TestToggleLike_AffinityMonotonic(t *testing.T) {
	st := store.NewMock()
	toggler := newToggler(st)
	userID, _ := st.CreateUser("almaz", "hash")
	addPost(t, st, "p1", "science", "music")
	addPost(t, st, "p2", "science", "art")

	prevSize := 0
	for i := 0; i < 3; i++ {
		for _, postID := range []string{"p1", "p2"} {
			if _, err := toggler.ToggleLike(userID, postID); err != nil {
				t.Fatalf("toggle failed: %v", err)
			}
			u, _ := st.GetUser(userID)
			if len(u.PreferredTags) < prevSize {
				t.Fatalf("affinity shrank from %d to %d", prevSize, len(u.PreferredTags))
			}
			prevSize = len(u.PreferredTags)
		}
	}

	u, _ := st.GetUser(userID)
	if len(u.PreferredTags) != 3 {
		t.Fatalf("expected 3 learned tags, got %v", u.PreferredTags)
	}
}

// A like on an untagged post is a positive signal with nothing to learn.
func TestToggleLike_UntaggedPost(t *testing.T) {
	st := store.NewMock()
	toggler := newToggler(st)
	userID, _ := st.CreateUser("almaz", "hash")
	addPost(t, st, "p1")

	if _, err := toggler.ToggleLike(userID, "p1"); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	u, _ := st.GetUser(userID)
	if len(u.PreferredTags) != 0 {
		t.Fatalf("expected empty affinity, got %v", u.PreferredTags)
	}
}

func TestToggleFollow_Involution(t *testing.T) {
	st := store.NewMock()
	toggler := newToggler(st)
	followerID, _ := st.CreateUser("almaz", "hash")
	followedID, _ := st.CreateUser("nur", "hash")

	state, err := toggler.ToggleFollow(followerID, followedID)
	if err != nil {
		t.Fatalf("first toggle failed: %v", err)
	}
	if state != StateFollowed {
		t.Fatalf("expected %q, got %q", StateFollowed, state)
	}

	state, err = toggler.ToggleFollow(followerID, followedID)
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if state != StateUnfollowed {
		t.Fatalf("expected %q, got %q", StateUnfollowed, state)
	}

	if st.Follows[followerID][followedID] {
		t.Fatal("expected follow relation removed after involution")
	}
}

func TestToggleFollow_UserNotFound(t *testing.T) {
	st := store.NewMock()
	toggler := newToggler(st)
	followerID, _ := st.CreateUser("almaz", "hash")

	_, err := toggler.ToggleFollow(followerID, "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Self-follow is not rejected.
func TestToggleFollow_SelfFollowAllowed(t *testing.T) {
	st := store.NewMock()
	toggler := newToggler(st)
	userID, _ := st.CreateUser("almaz", "hash")

	state, err := toggler.ToggleFollow(userID, userID)
	if err != nil {
		t.Fatalf("self-follow failed: %v", err)
	}
	if state != StateFollowed {
		t.Fatalf("expected %q, got %q", StateFollowed, state)
	}
}

// contendedStore loses both LWT races a fixed number of times before
// behaving normally, simulating a concurrent toggle flipping the pair
// between our insert and delete attempts.
type contendedStore struct {
	*store.MockStore
	lostRaces int
}

func (c *contendedStore) InsertLike(userID, postID string) (bool, error) {
	if c.lostRaces > 0 {
		return false, nil
	}
	return c.MockStore.InsertLike(userID, postID)
}

func (c *contendedStore) DeleteLike(userID, postID string) (bool, error) {
	if c.lostRaces > 0 {
		c.lostRaces--
		return false, nil
	}
	return c.MockStore.DeleteLike(userID, postID)
}

// A toggle that loses both races retries the transition instead of erroring.
func TestToggleLike_RetriesAfterLostRace(t *testing.T) {
	mock := store.NewMock()
	userID, _ := mock.CreateUser("almaz", "hash")
	st := &contendedStore{MockStore: mock, lostRaces: 1}
	addPost(t, mock, "p1", "science")

	toggler := newToggler(st)
	state, err := toggler.ToggleLike(userID, "p1")
	if err != nil {
		t.Fatalf("toggle under contention failed: %v", err)
	}
	if state != StateLiked {
		t.Fatalf("expected %q after retry, got %q", StateLiked, state)
	}
}

// When contention never resolves the toggle gives up with an error rather
// than spinning.
func TestToggleLike_ContentionExhausted(t *testing.T) {
	mock := store.NewMock()
	userID, _ := mock.CreateUser("almaz", "hash")
	st := &contendedStore{MockStore: mock, lostRaces: 1000}
	addPost(t, mock, "p1")

	toggler := newToggler(st)
	if _, err := toggler.ToggleLike(userID, "p1"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}
