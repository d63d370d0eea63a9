package recommend

import "time"

// Scoring weights and thresholds. The policy is fixed; these are not tunable
// at runtime.
const (
	recentActivityWeight = 2
	dayBoost             = 10
	weekBoost            = 5
	commentWeight        = 2
	tagMatchWeight       = 5

	// minScore is a strict lower bound: a candidate must score above it.
	minScore = 5

	// activityWindow is the trailing window for the recent-activity signal.
	activityWindow = 7 * 24 * time.Hour
)

// recentActivityScore rewards posts other users touched recently, counting
// every interaction type.
func recentActivityScore(recentInteractions int) int {
	return recentActivityWeight * recentInteractions
}

// recencyBoost is a fixed bonus tiered by post age.
func recencyBoost(age time.Duration) int {
	switch {
	case age <= 24*time.Hour:
		return dayBoost
	case age <= 7*24*time.Hour:
		return weekBoost
	default:
		return 0
	}
}

// engagementScore weighs comments double against likes.
func engagementScore(likeCount, commentCount int) int {
	return likeCount + commentWeight*commentCount
}

// tagMatchScore rewards each overlapping tag; zero when either set is empty.
func tagMatchScore(postTags, affinity []string) int {
	if len(postTags) == 0 || len(affinity) == 0 {
		return 0
	}
	return tagMatchWeight * intersectCount(postTags, affinity)
}

func intersectCount(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, tag := range b {
		set[tag] = struct{}{}
	}
	count := 0
	for _, tag := range a {
		if _, ok := set[tag]; ok {
			count++
		}
	}
	return count
}

func tagsIntersect(a, b []string) bool {
	return intersectCount(a, b) > 0
}
