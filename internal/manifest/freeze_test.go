package manifest

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"driftlab/internal/domain"
	"driftlab/internal/schema"
)

const freezeCSV = `Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country
489434,85048,GLASS BALL,12,2009-12-01 07:45:00,6.95,13085,United Kingdom
489434,79323P,PINK CHERRY LIGHTS,12,2009-12-01 07:45:00,6.75,13085,United Kingdom
489435,22350,CAT BOWL,8,2009-12-02 09:12:00,2.55,12682,France
489436,22350,CAT BOWL,4,2009-12-03 11:30:00,2.55,13085,United Kingdom
`

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp dataset: %v", err)
	}
	return path
}

func fixedClock() time.Time {
	return time.Date(2010, 12, 15, 10, 0, 0, 0, time.UTC)
}

func TestFreeze_BuildsManifest(t *testing.T) {
	path := writeTempCSV(t, freezeCSV)

	m, err := NewFreezer().WithClock(fixedClock).Freeze(path, "")
	if err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}

	if m.Version != domain.ManifestVersion {
		t.Errorf("Version = %q, want %q", m.Version, domain.ManifestVersion)
	}
	if m.File.HashAlgorithm != domain.HashAlgorithmSHA256 {
		t.Errorf("HashAlgorithm = %q, want sha256", m.File.HashAlgorithm)
	}
	if len(m.File.Hash) != 64 {
		t.Errorf("Hash length = %d, want 64", len(m.File.Hash))
	}
	if m.File.SizeBytes != int64(len(freezeCSV)) {
		t.Errorf("SizeBytes = %d, want %d", m.File.SizeBytes, len(freezeCSV))
	}
	if m.Source.URL != domain.SourceSyntheticURL {
		t.Errorf("Source.URL = %q, want %q", m.Source.URL, domain.SourceSyntheticURL)
	}
	if m.Source.Type != domain.SourceTypeSynthetic {
		t.Errorf("Source.Type = %q, want synthetic", m.Source.Type)
	}
	if !m.Schema.Validated {
		t.Error("Schema.Validated = false, want true")
	}

	stats := m.Statistics
	if stats.NumRecords != 4 {
		t.Errorf("NumRecords = %d, want 4", stats.NumRecords)
	}
	if stats.NumUniqueSKUs != 3 {
		t.Errorf("NumUniqueSKUs = %d, want 3", stats.NumUniqueSKUs)
	}
	if stats.NumUniqueCustomers != 2 {
		t.Errorf("NumUniqueCustomers = %d, want 2", stats.NumUniqueCustomers)
	}
	if stats.NumUniqueCountries != 2 {
		t.Errorf("NumUniqueCountries = %d, want 2", stats.NumUniqueCountries)
	}
	if got := stats.QuantityStats.Mean; got != 9.0 {
		t.Errorf("QuantityStats.Mean = %v, want 9", got)
	}
	if got := stats.PriceStats.Median; math.Abs(got-4.65) > 1e-9 {
		t.Errorf("PriceStats.Median = %v, want 4.65", got)
	}
}

func TestFreeze_HashDeterminism(t *testing.T) {
	path := writeTempCSV(t, freezeCSV)

	h1, size1, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}
	h2, size2, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}

	if h1 != h2 {
		t.Errorf("HashFile() not deterministic: %s != %s", h1, h2)
	}
	if size1 != size2 || size1 != int64(len(freezeCSV)) {
		t.Errorf("size = %d/%d, want %d", size1, size2, len(freezeCSV))
	}
}

func TestFreeze_MissingColumn(t *testing.T) {
	// Country column removed entirely
	csvData := "Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID\n" +
		"1,A,desc,1,2009-12-01 07:45:00,1.00,42\n"
	path := writeTempCSV(t, csvData)

	_, err := NewFreezer().Freeze(path, "")
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Freeze() error = %v, want *schema.ValidationError", err)
	}
	if len(verr.Missing) != 1 || verr.Missing[0] != "Country" {
		t.Errorf("Missing = %v, want [Country]", verr.Missing)
	}
}

func TestFreeze_ExtraColumnSucceeds(t *testing.T) {
	csvData := "Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country,Channel\n" +
		"1,A,desc,1,2009-12-01 07:45:00,1.00,42,United Kingdom,web\n"
	path := writeTempCSV(t, csvData)

	m, err := NewFreezer().Freeze(path, "https://example.org/retail.csv")
	if err != nil {
		t.Fatalf("Freeze() error = %v, want nil (extra columns tolerated)", err)
	}
	if !m.Schema.Validated {
		t.Error("Schema.Validated = false, want true")
	}
	if m.Source.Type != domain.SourceTypeReal {
		t.Errorf("Source.Type = %q, want real", m.Source.Type)
	}
	// The recorded schema is the required column list; extras are ignored.
	if len(m.Schema.Columns) != len(schema.RequiredColumns) {
		t.Errorf("Schema.Columns length = %d, want %d", len(m.Schema.Columns), len(schema.RequiredColumns))
	}
}

func TestVerify_DetectsSingleByteMutation(t *testing.T) {
	path := writeTempCSV(t, freezeCSV)

	m, err := NewFreezer().Freeze(path, "")
	if err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}

	res, err := Verify(path, m)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !res.Valid {
		t.Fatalf("Verify() on untouched file: Valid = false, recomputed %s", res.RecomputedHash)
	}

	// Flip one byte: price 6.95 -> 6.96
	mutated := []byte(freezeCSV)
	for i := range mutated {
		if mutated[i] == '5' {
			mutated[i] = '6'
			break
		}
	}
	if err := os.WriteFile(path, mutated, 0o644); err != nil {
		t.Fatalf("write mutated dataset: %v", err)
	}

	res, err = Verify(path, m)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if res.Valid {
		t.Error("Verify() on mutated file: Valid = true, want false")
	}
	if res.RecomputedHash == res.ExpectedHash {
		t.Error("recomputed hash equals expected hash after mutation")
	}
}

func TestVerify_CaseInsensitiveHexCompare(t *testing.T) {
	path := writeTempCSV(t, freezeCSV)

	m, err := NewFreezer().Freeze(path, "")
	if err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}

	upper := m
	upper.File.Hash = upperHex(m.File.Hash)
	res, err := Verify(path, upper)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !res.Valid {
		t.Error("Verify() with upper-case manifest hash: Valid = false, want true")
	}
}

func upperHex(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'f' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}
