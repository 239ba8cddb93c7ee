package navigation

import (
	"sort"
	"time"
)

// Intent is one recorded screen transition.
type Intent struct {
	ScreenName string         `json:"screen_name"`
	Timestamp  time.Time      `json:"timestamp"`
	Params     map[string]any `json:"params,omitempty"`
}

// History is a bounded, append-only log of the most recent intents. It is not
// safe for concurrent use; the owner serializes access.
type History struct {
	limit   int
	entries []Intent
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 10
	}
	return &History{limit: limit, entries: make([]Intent, 0, limit)}
}

// Append records in and drops the oldest entry once the limit is exceeded.
func (h *History) Append(in Intent) {
	h.entries = append(h.entries, in)
	if len(h.entries) > h.limit {
		h.entries = append(h.entries[:0], h.entries[len(h.entries)-h.limit:]...)
	}
}

// Last returns up to n most recent intents, oldest first.
func (h *History) Last(n int) []Intent {
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]Intent, n)
	copy(out, h.entries[len(h.entries)-n:])
	return out
}

func (h *History) Len() int {
	return len(h.entries)
}

func (h *History) Reset() {
	h.entries = h.entries[:0]
}

// Predict counts screen frequency over the last window intents and returns up
// to limit distinct screens, most frequent first, excluding current. Ties keep
// the order in which screens first appear in the window.
func Predict(recent []Intent, current string, limit int) []string {
	counts := make(map[string]int)
	order := make([]string, 0, len(recent))
	for _, in := range recent {
		if _, seen := counts[in.ScreenName]; !seen {
			order = append(order, in.ScreenName)
		}
		counts[in.ScreenName]++
	}

	candidates := make([]string, 0, len(order))
	for _, s := range order {
		if s != current {
			candidates = append(candidates, s)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return counts[candidates[i]] > counts[candidates[j]]
	})
	if limit >= 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Analytics is an informational summary of a session's history.
type Analytics struct {
	TotalNavigations  int           `json:"total_navigations"`
	UniqueScreens     int           `json:"unique_screens"`
	MostVisitedScreen string        `json:"most_visited_screen,omitempty"`
	SessionSpan       time.Duration `json:"session_span_ns"`
	CurrentScreen     string        `json:"current_screen,omitempty"`
}

// Summarize derives Analytics from intents (oldest first).
func Summarize(intents []Intent) Analytics {
	a := Analytics{TotalNavigations: len(intents)}
	if len(intents) == 0 {
		return a
	}
	counts := make(map[string]int)
	best := 0
	for _, in := range intents {
		counts[in.ScreenName]++
		if c := counts[in.ScreenName]; c > best {
			best = c
			a.MostVisitedScreen = in.ScreenName
		}
	}
	a.UniqueScreens = len(counts)
	a.SessionSpan = intents[len(intents)-1].Timestamp.Sub(intents[0].Timestamp)
	a.CurrentScreen = intents[len(intents)-1].ScreenName
	return a
}
