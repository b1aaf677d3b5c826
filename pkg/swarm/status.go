package swarm

import "github.com/matzehuels/workgraph/pkg/dag"

// Progress is the completion view of an analysis.
type Progress struct {
	EpicID    string         `json:"epic_id"`
	EpicTitle string         `json:"epic_title"`
	Waves     []WaveProgress `json:"waves"`

	Completed       int     `json:"completed"`
	Total           int     `json:"total"`
	PercentComplete float64 `json:"percent_complete"`

	Ready      int `json:"ready"`
	InProgress int `json:"in_progress"`
	Blocked    int `json:"blocked"`
}

// WaveProgress is the completion state of one wave.
type WaveProgress struct {
	Index     int        `json:"index"`
	Completed int        `json:"completed"`
	Total     int        `json:"total"`
	Items     []WaveItem `json:"items"`
}

// Done reports whether every item in the wave is closed.
func (w WaveProgress) Done() bool { return w.Completed == w.Total }

// Status overlays the current status of children on a. Children missing
// from the map keep the status recorded in the analysis. Unresolved
// children count toward the totals and as blocked unless closed.
func Status(a *Analysis, children []*dag.Item) *Progress {
	current := make(map[string]dag.Status, len(children))
	for _, c := range children {
		if c != nil {
			current[c.ID] = c.Status
		}
	}
	statusOf := func(id string, fallback dag.Status) dag.Status {
		if s, ok := current[id]; ok {
			return s
		}
		return fallback
	}
	closed := make(map[string]bool)
	for _, w := range a.Waves {
		for _, it := range w.Items {
			closed[it.ID] = statusOf(it.ID, it.Status).IsClosed()
		}
	}

	p := &Progress{EpicID: a.EpicID, EpicTitle: a.EpicTitle, Waves: make([]WaveProgress, len(a.Waves))}
	for i, w := range a.Waves {
		wp := WaveProgress{Index: w.Index, Total: len(w.Items), Items: make([]WaveItem, len(w.Items))}
		for j, it := range w.Items {
			it.Status = statusOf(it.ID, it.Status)
			var needs []string
			for _, n := range it.Needs {
				if !closed[n] {
					needs = append(needs, n)
				}
			}
			it.Needs = needs
			wp.Items[j] = it

			switch {
			case it.Status.IsClosed():
				wp.Completed++
			case it.Status == dag.StatusInProgress:
				p.InProgress++
			case it.Status == dag.StatusOpen && len(needs) == 0:
				p.Ready++
			default:
				p.Blocked++
			}
		}
		p.Completed += wp.Completed
		p.Total += wp.Total
		p.Waves[i] = wp
	}

	for _, id := range a.Unresolved {
		p.Total++
		if statusOf(id, "").IsClosed() {
			p.Completed++
		} else {
			p.Blocked++
		}
	}

	if p.Total > 0 {
		p.PercentComplete = float64(p.Completed) * 100 / float64(p.Total)
	}
	return p
}
