package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/sensiblebit/acmefacts"
	"github.com/sensiblebit/acmefacts/internal/certstore"
)

func TestExportRecords(t *testing.T) {
	t.Parallel()
	rs, _ := twoRecordSet(t)
	out := filepath.Join(t.TempDir(), "export")

	written, err := ExportRecords(ExportInput{Results: rs, Directory: "/certs", OutDir: out, CBOM: true})
	if err != nil {
		t.Fatal(err)
	}
	// 6 files per record plus the CBOM
	if len(written) != 13 {
		t.Fatalf("wrote %d files, want 13: %v", len(written), written)
	}

	for _, name := range []string{"alpha.p7b", "beta.truststore.jks", "beta.truststore.p12", "cbom.json"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(out, "alpha.truststore.p12"))
	if err != nil {
		t.Fatal(err)
	}
	certs, err := acmefacts.DecodePKCS12TrustStore(data, certstore.DefaultTrustStorePassword)
	if err != nil {
		t.Fatal(err)
	}
	if len(certs) != 1 || certs[0].Subject.CommonName != "Test Intermediate CA" {
		t.Errorf("alpha truststore should hold the intermediate, got %v", certs)
	}

	f, err := os.Open(filepath.Join(out, "cbom.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var bom cdx.BOM
	if err := cdx.NewBOMDecoder(f, cdx.BOMFileFormatJSON).Decode(&bom); err != nil {
		t.Fatal(err)
	}
	if len(*bom.Components) != 2 {
		t.Errorf("CBOM has %d components, want 2", len(*bom.Components))
	}
}

func TestExportRecords_BadChain(t *testing.T) {
	t.Parallel()
	rs, _ := twoRecordSet(t)
	rec := rs["alpha"]
	rec.Chain = "\xde\xad\xbe\xef"
	rs["alpha"] = rec

	_, err := ExportRecords(ExportInput{Results: rs, OutDir: t.TempDir()})
	if err == nil {
		t.Error("expected error for undecodable chain")
	}
}

func TestExportRecords_PrefixCollision(t *testing.T) {
	// WHY: "a*b" and "a_b" sanitize to the same prefix; exporting both must
	// fail before either record's files are written.
	t.Parallel()
	ca := newECDSACA(t)
	dir := t.TempDir()
	writePair(t, dir, "a*b", newECDSALeaf(t, ca, "star.example.com"), ca)
	writePair(t, dir, "a_b", newECDSALeaf(t, ca, "under.example.com"), ca)
	rs := scanDir(t, dir)

	out := filepath.Join(t.TempDir(), "export")
	written, err := ExportRecords(ExportInput{Results: rs, OutDir: out})
	if err == nil {
		t.Fatal("expected error for colliding export prefixes")
	}
	if !strings.Contains(err.Error(), `"a_b"`) {
		t.Errorf("error %q should name the shared prefix", err)
	}
	if len(written) != 0 {
		t.Errorf("expected nothing written, got %v", written)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("export directory should not exist, stat err = %v", err)
	}
}
