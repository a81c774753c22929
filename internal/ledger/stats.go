package ledger

import (
	"sort"

	"github.com/sells-group/lead-cli/internal/model"
)

// SectorStats counts ledger rows and contact coverage for one sector.
type SectorStats struct {
	Sector    string `json:"sector"`
	Companies int    `json:"companies"`
	WithEmail int    `json:"with_email"`
	WithPhone int    `json:"with_phone"`
}

// Stats groups records by sector, ordered by sector name.
func Stats(records []model.CompanyRecord) []SectorStats {
	bySector := make(map[string]*SectorStats)
	for _, r := range records {
		st, ok := bySector[r.Sector]
		if !ok {
			st = &SectorStats{Sector: r.Sector}
			bySector[r.Sector] = st
		}
		st.Companies++
		if r.Email != nil {
			st.WithEmail++
		}
		if r.Phone != nil {
			st.WithPhone++
		}
	}

	out := make([]SectorStats, 0, len(bySector))
	for _, st := range bySector {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sector < out[j].Sector })
	return out
}
