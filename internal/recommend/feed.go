package recommend

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"example.com/engagefeed/internal/engagement"
	"example.com/engagefeed/internal/logger"
	"example.com/engagefeed/internal/models"
	"example.com/engagefeed/internal/store"
)

var logg = logger.New()

const (
	// DefaultMaxResults bounds the feed length and the greedy scan.
	DefaultMaxResults = 10

	// Candidate pool caps: the cold-start pool is wide and unfiltered, the
	// tag-filtered pool is narrow.
	coldStartCap   = 100
	tagFilteredCap = 20
)

// Engine computes a ranked, deduplicated personalized feed. It only reads:
// candidate posts, their counters, the ledger and the user's affinity set.
// Each signal is fetched independently; read skew across concurrent writers
// is accepted.
type Engine struct {
	store  store.StoreInterface
	ledger *engagement.Ledger
	now    func() time.Time
}

func New(st store.StoreInterface, ledger *engagement.Ledger) *Engine {
	return &Engine{store: st, ledger: ledger, now: time.Now}
}

type scoredPost struct {
	post  models.Post
	score int
}

// Generate returns at most maxResults posts, each scoring strictly above
// minScore, ordered by score descending with createdAt descending ties.
//
// The scan over the candidate pool stops as soon as maxResults qualifying
// candidates have been kept: later candidates are never evaluated, even if
// they would score higher. This bounded greedy scan is deliberate and kept
// for behavioral parity with the original ranking.
func (e *Engine) Generate(userID string, maxResults int) ([]models.Post, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	// An unresolved user and an empty affinity set both take the cold-start
	// path.
	var affinity []string
	user, err := e.store.GetUser(userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("generate feed: %w", err)
	}
	if err == nil {
		affinity = user.PreferredTags
	}

	candidates, err := e.candidates(userID, affinity)
	if err != nil {
		return nil, fmt.Errorf("generate feed: %w", err)
	}

	kept := make([]scoredPost, 0, maxResults)
	for _, post := range candidates {
		score, err := e.score(post, affinity)
		if err != nil {
			return nil, fmt.Errorf("generate feed: %w", err)
		}
		if score > minScore {
			kept = append(kept, scoredPost{post: post, score: score})
		}
		if len(kept) >= maxResults {
			break
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].post.Created.After(kept[j].post.Created)
	})

	feed := make([]models.Post, 0, len(kept))
	for _, sp := range kept {
		feed = append(feed, sp.post)
	}

	logg.Info("recommend", fmt.Sprintf("Feed generated with %d posts (user ID anonymized)", len(feed)))
	return feed, nil
}

// candidates selects the scoring pool in storage retrieval order. Posts the
// user has already interacted with are always excluded. With a non-empty
// affinity set the pool is additionally tag-filtered and capped tighter.
func (e *Engine) candidates(userID string, affinity []string) ([]models.Post, error) {
	poolCap := coldStartCap
	if len(affinity) > 0 {
		poolCap = tagFilteredCap
	}

	posts, err := e.store.GetPosts(0)
	if err != nil {
		return nil, err
	}

	var pool []models.Post
	for _, post := range posts {
		interacted, err := e.ledger.HasInteracted(userID, post.ID)
		if err != nil {
			return nil, err
		}
		if interacted {
			continue
		}
		if len(affinity) > 0 && !tagsIntersect(post.Tags, affinity) {
			continue
		}
		pool = append(pool, post)
		if len(pool) >= poolCap {
			break
		}
	}
	return pool, nil
}

// score sums the four independent contributions for one candidate.
func (e *Engine) score(post models.Post, affinity []string) (int, error) {
	recent, err := e.ledger.CountSince(post.ID, "", activityWindow)
	if err != nil {
		return 0, err
	}

	likes, err := e.store.LikeCount(post.ID)
	if err != nil {
		return 0, err
	}

	comments, err := e.store.CommentCount(post.ID)
	if err != nil {
		return 0, err
	}

	score := recentActivityScore(recent) +
		recencyBoost(e.now().Sub(post.Created)) +
		engagementScore(likes, comments) +
		tagMatchScore(post.Tags, affinity)

	return score, nil
}
