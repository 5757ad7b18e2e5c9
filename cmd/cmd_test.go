package cmd

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/valpere/listingfix/internal"
)

func TestWriteOutputCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	header := []string{"brand", "product_type"}
	rows := [][]string{
		{"TechBrand", "headphones"},
		{"Acme", "hose"},
		{"Short"},
	}
	outputs := []*internal.ProductOutput{
		{Title: "TechBrand Headphones", Bullets: []string{"One", "Two"}},
		nil,
		{Title: "Short", Violations: []internal.ViolationDescriptor{{Kind: "bullet_count", Field: "bullets", Detail: "has 0 bullets, need exactly 8"}}},
	}

	written, compliant, err := writeOutputCSV(path, header, rows, outputs)
	if err != nil {
		t.Fatalf("writeOutputCSV failed: %v", err)
	}
	if written != 2 || compliant != 1 {
		t.Errorf("written=%d compliant=%d, want 2 and 1", written, compliant)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	wantHeader := append([]string{"brand", "product_type"}, internal.OutputColumns...)
	if diff := cmp.Diff(wantHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if records[1][2] != "TechBrand Headphones" || records[1][3] != "<li>One</li><li>Two</li>" {
		t.Errorf("unexpected refined row %q", records[1])
	}
	if records[2][2] != "" {
		t.Errorf("unrefined row should keep empty refined columns, got %q", records[2])
	}
	if records[3][1] != "" || records[3][7] != "bullets: has 0 bullets, need exactly 8" {
		t.Errorf("short row not padded correctly: %q", records[3])
	}
}

func TestReadRefineInput_Flags(t *testing.T) {
	t.Cleanup(func() {
		refineInputFile, refineBrand, refineProductType = "", "", ""
		refineAttributes, refineBullets = nil, nil
	})

	refineBrand = "TechBrand"
	refineProductType = "headphones"
	refineAttributes = []string{"Color=Black", " Connectivity = Bluetooth "}
	refineBullets = []string{"Old bullet"}

	in, err := readRefineInput()
	if err != nil {
		t.Fatalf("readRefineInput failed: %v", err)
	}
	want := internal.ProductInput{
		Brand:          "TechBrand",
		ProductType:    "headphones",
		Attributes:     map[string]string{"Color": "Black", "Connectivity": "Bluetooth"},
		CurrentBullets: []string{"Old bullet"},
	}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("input mismatch (-want +got):\n%s", diff)
	}

	refineAttributes = []string{"no-separator"}
	if _, err := readRefineInput(); err == nil {
		t.Error("expected malformed attribute to fail")
	}
}

func TestReadRefineInput_FileWithOverride(t *testing.T) {
	t.Cleanup(func() { refineInputFile, refineBrand = "", "" })

	path := filepath.Join(t.TempDir(), "record.json")
	body := `{"brand":"Acme","product_type":"garden hose","attributes":{"Length":"50 ft"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	refineInputFile = path
	refineBrand = "Acme Pro"

	in, err := readRefineInput()
	if err != nil {
		t.Fatalf("readRefineInput failed: %v", err)
	}
	if in.Brand != "Acme Pro" || in.Attributes["Length"] != "50 ft" {
		t.Errorf("unexpected input %+v", in)
	}
}

func TestReadRefineInput_Empty(t *testing.T) {
	if _, err := readRefineInput(); err == nil {
		t.Error("expected an error without any input")
	}
}
