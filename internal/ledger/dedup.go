package ledger

import "github.com/sells-group/lead-cli/internal/model"

// DedupSet is the in-memory mirror of the URLs already in the ledger. URLs
// are compared byte for byte; no normalization is applied.
type DedupSet map[string]struct{}

// NewDedupSet seeds the set from loaded records.
func NewDedupSet(records []model.CompanyRecord) DedupSet {
	s := make(DedupSet, len(records))
	for _, r := range records {
		if r.URL != "" {
			s[r.URL] = struct{}{}
		}
	}
	return s
}

// Has reports whether url is already recorded.
func (s DedupSet) Has(url string) bool {
	_, ok := s[url]
	return ok
}

// Add records url.
func (s DedupSet) Add(url string) {
	s[url] = struct{}{}
}
