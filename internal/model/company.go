package model

// SearchResultItem is one organic hit returned by a search backend. URL is
// empty when the backend returned no link for the hit.
type SearchResultItem struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet"`
}

// HasURL reports whether the hit carries a link.
func (i SearchResultItem) HasURL() bool {
	return i.URL != ""
}

// CompanyRecord is a confirmed lead as stored in the ledger. URL is the unique
// key, compared byte for byte.
type CompanyRecord struct {
	Name   string  `json:"name"`
	URL    string  `json:"url"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
	Sector string  `json:"sector"`
}

// ExtractionResult is a best-effort contact parse. A nil field means the
// value was not found.
type ExtractionResult struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// Empty reports whether neither contact was found.
func (r ExtractionResult) Empty() bool {
	return r.Email == nil && r.Phone == nil
}

// NewCompanyRecord builds the record persisted for an accepted candidate.
func NewCompanyRecord(item SearchResultItem, contacts ExtractionResult, sector string) CompanyRecord {
	return CompanyRecord{
		Name:   item.Title,
		URL:    item.URL,
		Email:  contacts.Email,
		Phone:  contacts.Phone,
		Sector: sector,
	}
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
