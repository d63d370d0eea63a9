package engagement

import (
	"example.com/engagefeed/internal/store"
)

// Tracker maintains each user's derived set of preferred tags. The set only
// grows: nothing in the system removes a learned tag, including unlike.
type Tracker struct {
	store store.StoreInterface
}

func NewTracker(st store.StoreInterface) *Tracker {
	return &Tracker{store: st}
}

// OnPositiveSignal unions tags into the user's affinity set. Only the like
// transition calls this; views and comments never feed affinity.
func (t *Tracker) OnPositiveSignal(userID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	return t.store.AddPreferredTags(userID, tags)
}
