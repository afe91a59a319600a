package certstore

import "time"

// ScanSummaryInput holds parameters for Summarize.
type ScanSummaryInput struct {
	ExpiryWindow time.Duration // certificates expiring within the window count as expiring
	Now          time.Time     // zero means time.Now()
}

// ScanSummary holds aggregate counts from a scan.
type ScanSummary struct {
	Records      int        `json:"records"`
	Expired      int        `json:"expired"`
	Expiring     int        `json:"expiring"`
	NoCommonName int        `json:"no_common_name"`
	NextExpiry   *time.Time `json:"next_expiry,omitempty"`
	NextExpiryID string     `json:"next_expiry_identifier,omitempty"`
}

// Summarize counts expired and soon-to-expire certificates in rs.
func Summarize(rs ResultSet, in ScanSummaryInput) ScanSummary {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	var s ScanSummary
	for _, id := range rs.Identifiers() {
		rec := rs[id]
		s.Records++
		if rec.CommonName == "" {
			s.NoCommonName++
		}
		if rec.Parsed == nil {
			continue
		}
		notAfter := rec.Parsed.NotAfter
		switch {
		case now.After(notAfter):
			s.Expired++
		case now.Add(in.ExpiryWindow).After(notAfter):
			s.Expiring++
		}
		if s.NextExpiry == nil || notAfter.Before(*s.NextExpiry) {
			t := notAfter
			s.NextExpiry = &t
			s.NextExpiryID = id
		}
	}
	return s
}
