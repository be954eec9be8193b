package diseasemap

import (
	"fmt"
	"sort"
	"strings"
)

// Table is an immutable disease lookup. It is safe for concurrent use.
type Table struct {
	byKey   map[string]Entry
	ordered []Entry
}

// New validates entries and builds a table. Every field is required and two
// diseases may not normalize to the same key.
func New(entries []Entry) (*Table, error) {
	t := &Table{byKey: make(map[string]Entry, len(entries))}
	for i, e := range entries {
		e.Disease = strings.TrimSpace(e.Disease)
		e.Organ = strings.TrimSpace(e.Organ)
		e.Specialization = strings.TrimSpace(e.Specialization)
		if e.Disease == "" || e.Organ == "" || e.Specialization == "" {
			return nil, fmt.Errorf("entry %d: disease, organ and specialization are required", i)
		}
		key := Normalize(e.Disease)
		if prev, dup := t.byKey[key]; dup {
			return nil, fmt.Errorf("entry %d: %q duplicates %q", i, e.Disease, prev.Disease)
		}
		t.byKey[key] = e
		t.ordered = append(t.ordered, e)
	}
	sort.Slice(t.ordered, func(i, j int) bool {
		return t.ordered[i].Disease < t.ordered[j].Disease
	})
	return t, nil
}

// Lookup returns the entry for diseaseName after normalization.
func (t *Table) Lookup(diseaseName string) (Entry, error) {
	e, ok := t.byKey[Normalize(diseaseName)]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Entries returns a copy of all entries sorted by disease name.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Specializations returns the distinct specializations in the table, sorted.
func (t *Table) Specializations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range t.ordered {
		key := NormalizeSpecialization(e.Specialization)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e.Specialization)
	}
	sort.Strings(out)
	return out
}

func (t *Table) Len() int { return len(t.ordered) }

var defaultEntries = []Entry{
	{Disease: "Heart Attack", Organ: "Heart", Specialization: "Cardiologist"},
	{Disease: "Hypertension", Organ: "Heart", Specialization: "Cardiologist"},
	{Disease: "Asthma", Organ: "Lungs", Specialization: "Pulmonologist"},
	{Disease: "Pneumonia", Organ: "Lungs", Specialization: "Pulmonologist"},
	{Disease: "Kidney Stones", Organ: "Kidney", Specialization: "Nephrologist"},
	{Disease: "Kidney Infection", Organ: "Kidney", Specialization: "Nephrologist"},
	{Disease: "Liver Cirrhosis", Organ: "Liver", Specialization: "Hepatologist"},
	{Disease: "Hepatitis", Organ: "Liver", Specialization: "Hepatologist"},
	{Disease: "Diabetes", Organ: "Pancreas", Specialization: "Endocrinologist"},
	{Disease: "Brain Tumor", Organ: "Brain", Specialization: "Neurologist"},
	{Disease: "Migraine", Organ: "Brain", Specialization: "Neurologist"},
	{Disease: "Stomach Pain", Organ: "Stomach", Specialization: "Gastroenterologist"},
	{Disease: "Acid Reflux", Organ: "Stomach", Specialization: "Gastroenterologist"},
	{Disease: "Eye Infection", Organ: "Eye", Specialization: "Ophthalmologist"},
	{Disease: "Blurred Vision", Organ: "Eye", Specialization: "Ophthalmologist"},
	{Disease: "Skin Rash", Organ: "Skin", Specialization: "Dermatologist"},
	{Disease: "Acne", Organ: "Skin", Specialization: "Dermatologist"},
}

// Default returns the built-in table used when no mapping file is configured.
func Default() *Table {
	t, err := New(defaultEntries)
	if err != nil {
		panic(fmt.Sprintf("diseasemap: invalid built-in table: %v", err))
	}
	return t
}
