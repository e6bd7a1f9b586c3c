package pagination

// Snapshot is a read-only projection of a controller for presentation.
type Snapshot struct {
	State         LoadState `json:"state"`
	Cursor        int       `json:"cursor"`
	PagesLoaded   int       `json:"pages_loaded"`
	BatchSize     int       `json:"batch_size"`
	Exhausted     bool      `json:"exhausted"`
	HasMore       bool      `json:"has_more"`
	FetchesIssued int       `json:"fetches_issued"`
	LastError     string    `json:"last_error,omitempty"`
	Records       []Record  `json:"records"`
}

// Group is the records of one batch, in source order.
type Group struct {
	BatchIndex int      `json:"batch_index"`
	FirstID    int      `json:"first_id"`
	LastID     int      `json:"last_id"`
	Records    []Record `json:"records"`
}

// Loading reports whether a fetch is outstanding.
func (s Snapshot) Loading() bool {
	return s.State == StateFetching
}

// Groups splits the records by batch index. Records are appended in page
// order, so each batch forms one contiguous run.
func (s Snapshot) Groups() []Group {
	groups := make([]Group, 0, s.PagesLoaded)
	for _, r := range s.Records {
		n := len(groups)
		if n == 0 || groups[n-1].BatchIndex != r.BatchIndex {
			groups = append(groups, Group{
				BatchIndex: r.BatchIndex,
				FirstID:    FirstID(r.BatchIndex, s.BatchSize),
				LastID:     LastID(r.BatchIndex, s.BatchSize),
			})
			n++
		}
		groups[n-1].Records = append(groups[n-1].Records, r)
	}
	return groups
}
