package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sensiblebit/acmefacts"
	"github.com/sensiblebit/acmefacts/internal/certstore"
)

// ListEntry is one row of the list output.
type ListEntry struct {
	Identifier string `json:"identifier"`
	CommonName string `json:"cn"`
	NotAfter   string `json:"not_after"`
	DaysLeft   int    `json:"days_left"`
	CertType   string `json:"cert_type"`
	Status     string `json:"status"`
}

// ListResult holds the list rows and the summary counts.
type ListResult struct {
	Entries []ListEntry           `json:"certificates"`
	Summary certstore.ScanSummary `json:"summary"`
}

// BuildListInput holds parameters for BuildList.
type BuildListInput struct {
	Results      certstore.ResultSet
	ExpiryWindow time.Duration
	Now          time.Time // zero means time.Now()
}

// BuildList produces one entry per record, sorted by identifier.
func BuildList(input BuildListInput) ListResult {
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	result := ListResult{
		Entries: []ListEntry{},
		Summary: certstore.Summarize(input.Results, certstore.ScanSummaryInput{
			ExpiryWindow: input.ExpiryWindow,
			Now:          now,
		}),
	}
	for _, id := range input.Results.Identifiers() {
		rec := input.Results[id]
		entry := ListEntry{
			Identifier: id,
			CommonName: certstore.DisplayName(rec),
			Status:     "ok",
		}
		if cert := rec.Parsed; cert != nil {
			entry.NotAfter = cert.NotAfter.UTC().Format(time.RFC3339)
			entry.DaysLeft = daysUntil(cert.NotAfter, now)
			entry.CertType = acmefacts.GetCertificateType(cert)
			switch {
			case now.After(cert.NotAfter):
				entry.Status = "expired"
			case now.Add(input.ExpiryWindow).After(cert.NotAfter):
				entry.Status = "expiring"
			}
		}
		result.Entries = append(result.Entries, entry)
	}
	return result
}

// FormatList formats a list result as a text table or JSON.
func FormatList(r ListResult, format string) (string, error) {
	switch format {
	case "text":
		return formatListText(r), nil
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text or json)", format)
	}
}

func formatListText(r ListResult) string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IDENTIFIER\tCN\tNOT AFTER\tDAYS\tTYPE\tSTATUS")
	for _, e := range r.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", e.Identifier, e.CommonName, e.NotAfter, e.DaysLeft, e.CertType, e.Status)
	}
	_ = tw.Flush()

	fmt.Fprintf(&sb, "\n%d certificate(s)%s\n", r.Summary.Records, CertAnnotation(r.Summary.Expired, r.Summary.Expiring))
	if r.Summary.NextExpiry != nil {
		fmt.Fprintf(&sb, "Next expiry: %s (%s)\n", r.Summary.NextExpiryID, r.Summary.NextExpiry.UTC().Format("2006-01-02"))
	}
	return sb.String()
}
