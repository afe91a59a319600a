package internal

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sensiblebit/acmefacts/internal/certstore"
)

func TestBuildList(t *testing.T) {
	t.Parallel()
	root := newECDSACA(t)
	dir := t.TempDir()
	writePair(t, dir, "fresh", newECDSALeaf(t, root, "fresh.example.com"), root)
	writePair(t, dir, "soon", newLeaf(t, root, "soon.example.com", nil, time.Now().Add(5*24*time.Hour)), root)
	writePair(t, dir, "stale", newExpiredLeaf(t, root, "stale.example.com"), root)
	rs := scanDir(t, dir)

	r := BuildList(BuildListInput{Results: rs, ExpiryWindow: 30 * 24 * time.Hour})
	if len(r.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(r.Entries))
	}

	want := map[string]string{"fresh": "ok", "soon": "expiring", "stale": "expired"}
	for _, e := range r.Entries {
		if e.Status != want[e.Identifier] {
			t.Errorf("%s: status = %q, want %q", e.Identifier, e.Status, want[e.Identifier])
		}
		if e.CertType != "leaf" {
			t.Errorf("%s: type = %q, want leaf", e.Identifier, e.CertType)
		}
	}
	if r.Entries[0].Identifier != "fresh" || r.Entries[2].Identifier != "stale" {
		t.Errorf("entries not sorted: %v", r.Entries)
	}
	if r.Summary.Expired != 1 || r.Summary.Expiring != 1 || r.Summary.Records != 3 {
		t.Errorf("unexpected summary %+v", r.Summary)
	}
	if r.Summary.NextExpiryID != "stale" {
		t.Errorf("next expiry = %q, want stale", r.Summary.NextExpiryID)
	}
}

func TestFormatList(t *testing.T) {
	t.Parallel()
	rs, _ := twoRecordSet(t)
	r := BuildList(BuildListInput{Results: rs, ExpiryWindow: 30 * 24 * time.Hour})

	text, err := FormatList(r, "text")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"IDENTIFIER", "alpha.example.com", "beta.example.com", "2 certificate(s) (1 expiring)", "Next expiry: beta"} {
		if !strings.Contains(text, want) {
			t.Errorf("text output missing %q:\n%s", want, text)
		}
	}

	out, err := FormatList(r, "json")
	if err != nil {
		t.Fatal(err)
	}
	var decoded ListResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Entries) != 2 || decoded.Entries[1].Status != "expiring" {
		t.Errorf("unexpected decoded list %+v", decoded)
	}

	if _, err := FormatList(r, "csv"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestFormatList_EmptyJSON(t *testing.T) {
	t.Parallel()
	out, err := FormatList(BuildList(BuildListInput{Results: certstore.ResultSet{}}), "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"certificates": []`) {
		t.Errorf("empty list should render an empty array, got %s", out)
	}
}
