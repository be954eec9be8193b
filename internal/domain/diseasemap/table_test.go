package diseasemap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_LookupEveryEntry(t *testing.T) {
	table := Default()
	if table.Len() != len(defaultEntries) {
		t.Fatalf("expected %d entries, got %d", len(defaultEntries), table.Len())
	}
	for _, want := range defaultEntries {
		got, err := table.Lookup(want.Disease)
		if err != nil {
			t.Errorf("Lookup(%q) unexpected error: %v", want.Disease, err)
			continue
		}
		if got != want {
			t.Errorf("Lookup(%q) = %+v, want %+v", want.Disease, got, want)
		}
	}
}

func TestLookup_NotFound(t *testing.T) {
	table := Default()
	for _, name := range []string{"UnknownDiseaseXYZ", "", "Heart", "Cardiologist"} {
		if _, err := table.Lookup(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Lookup(%q) expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestLookup_Normalized(t *testing.T) {
	table := Default()
	for _, name := range []string{"heart attack", "  HEART   attack ", "Heart\tAttack"} {
		got, err := table.Lookup(name)
		if err != nil {
			t.Errorf("Lookup(%q) unexpected error: %v", name, err)
			continue
		}
		if got.Specialization != "Cardiologist" {
			t.Errorf("Lookup(%q) specialization = %q, want Cardiologist", name, got.Specialization)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Heart Attack":      "heart attack",
		"  Kidney  Stones ": "kidney stones",
		"ACNE":              "acne",
		"":                  "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNew_RejectsDuplicatesAfterNormalization(t *testing.T) {
	_, err := New([]Entry{
		{Disease: "Asthma", Organ: "Lungs", Specialization: "Pulmonologist"},
		{Disease: " asthma", Organ: "Lungs", Specialization: "Allergist"},
	})
	if err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestNew_RejectsEmptyFields(t *testing.T) {
	_, err := New([]Entry{{Disease: "Asthma", Organ: "", Specialization: "Pulmonologist"}})
	if err == nil {
		t.Fatal("expected error for empty organ")
	}
}

func TestEntries_SortedCopy(t *testing.T) {
	table := Default()
	entries := table.Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Disease > entries[i].Disease {
			t.Fatalf("entries not sorted at %d: %q > %q", i, entries[i-1].Disease, entries[i].Disease)
		}
	}
	entries[0].Disease = "mutated"
	if table.Entries()[0].Disease == "mutated" {
		t.Error("Entries() must return a copy")
	}
}

func TestSpecializations_Distinct(t *testing.T) {
	specs := Default().Specializations()
	if len(specs) != 9 {
		t.Fatalf("expected 9 specializations, got %d: %v", len(specs), specs)
	}
}

func TestParse(t *testing.T) {
	table, err := Parse([]byte(`
diseases:
  - disease: Gout
    organ: Joints
    specialization: Rheumatologist
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, err := table.Lookup("gout")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e.Organ != "Joints" || e.Specialization != "Rheumatologist" {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse([]byte("diseases: []\n")); err == nil {
		t.Fatal("expected error for empty table")
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse([]byte("diseases: [: nope")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadFile_EmptyPathUsesDefault(t *testing.T) {
	table, err := LoadFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != len(defaultEntries) {
		t.Errorf("expected default table, got %d entries", table.Len())
	}
}

func TestLoadFile_ShippedDataMatchesDefault(t *testing.T) {
	table, err := LoadFile(filepath.Join("..", "..", "..", "data", "diseases.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := Default().Entries()
	got := table.Entries()
	if len(got) != len(def) {
		t.Fatalf("expected %d entries, got %d", len(def), len(got))
	}
	for i := range def {
		if got[i] != def[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, got[i], def[i])
		}
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_Custom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	data := []byte("diseases:\n  - disease: Otitis\n    organ: Ear\n    specialization: Otolaryngologist\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := table.Lookup("Heart Attack"); !errors.Is(err, ErrNotFound) {
		t.Error("custom table must not include default entries")
	}
}
