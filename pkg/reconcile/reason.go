package reconcile

import (
	"sort"
	"time"
)

// Reason records why a rebuild was requested.
type Reason string

const (
	ReasonObserver      Reason = "observer"
	ReasonSort          Reason = "sort"
	ReasonSearch        Reason = "search"
	ReasonEditorChange  Reason = "editor-change"
	ReasonPagination    Reason = "pagination"
	ReasonGroupMove     Reason = "group-move"
	ReasonGroupToggle   Reason = "group-toggle"
	ReasonGroupCollapse Reason = "group-collapse"
	ReasonGroupRename   Reason = "group-rename"
	ReasonManageApply   Reason = "manage-apply"
	ReasonRefresh       Reason = "refresh"
	ReasonInit          Reason = "init"
	ReasonStore         Reason = "store"
)

// State of the rebuild scheduler.
type State int

const (
	Idle State = iota
	PendingRebuild
	Rebuilding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingRebuild:
		return "pending"
	case Rebuilding:
		return "rebuilding"
	}
	return "unknown"
}

// Report describes one rebuild pass.
type Report struct {
	Reasons   []Reason      `json:"reasons"`
	Applied   bool          `json:"applied"`
	Unchanged bool          `json:"unchanged"`
	Missing   bool          `json:"missing"`
	Groups    int           `json:"groups"`
	Signature string        `json:"signature"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Stats accumulates rebuild counters.
type Stats struct {
	Count     int            `json:"count"`
	Applied   int            `json:"applied"`
	Unchanged int            `json:"unchanged"`
	Missing   int            `json:"missing"`
	Total     time.Duration  `json:"total"`
	Reasons   map[Reason]int `json:"reasons"`
}

func (s *Stats) record(r Report) {
	s.Count++
	s.Total += r.Elapsed
	switch {
	case r.Missing:
		s.Missing++
	case r.Applied:
		s.Applied++
	default:
		s.Unchanged++
	}
	if s.Reasons == nil {
		s.Reasons = make(map[Reason]int)
	}
	for _, reason := range r.Reasons {
		s.Reasons[reason]++
	}
}

func (s Stats) clone() Stats {
	out := s
	out.Reasons = make(map[Reason]int, len(s.Reasons))
	for k, v := range s.Reasons {
		out.Reasons[k] = v
	}
	return out
}

// Average returns the mean rebuild duration.
func (s Stats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

func sortedReasons(set map[Reason]struct{}) []Reason {
	out := make([]Reason, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
