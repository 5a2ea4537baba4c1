package config

import "testing"

func TestNewCatalogValidatesDefault(t *testing.T) {
	fc := fileConfig{
		Default: "a",
		Drive: []fileDrive{
			{Name: "a", Cyls: 35, Heads: 1, RPM: 300, MaxKBps: 250, Variants: []string{"d64"}},
		},
	}
	cat, err := newCatalog(fc)
	if err != nil {
		t.Fatalf("newCatalog: %v", err)
	}
	if cat.Default().Name != "a" {
		t.Errorf("default name = %q", cat.Default().Name)
	}
}

func TestNewCatalogRejectsMissingDefault(t *testing.T) {
	fc := fileConfig{Default: "missing", Drive: []fileDrive{
		{Name: "a", Cyls: 35, Heads: 1, RPM: 300, MaxKBps: 250, Variants: []string{"d64"}},
	}}
	if _, err := newCatalog(fc); err == nil {
		t.Fatal("expected error for unresolved default")
	}
}

func TestNewCatalogRejectsInvalidFields(t *testing.T) {
	bad := fileConfig{Default: "a", Drive: []fileDrive{
		{Name: "a", Cyls: 0, Heads: 1, RPM: 300, MaxKBps: 250, Variants: []string{"d64"}},
	}}
	if _, err := newCatalog(bad); err == nil {
		t.Fatal("expected error for zero cyls")
	}
}

func TestGetFallsBackToDefault(t *testing.T) {
	cat, _ := newCatalog(fileConfig{Default: "a", Drive: []fileDrive{
		{Name: "a", Cyls: 35, Heads: 1, RPM: 300, MaxKBps: 250, Variants: []string{"d64"}},
		{Name: "b", Cyls: 80, Heads: 2, RPM: 300, MaxKBps: 500, Variants: []string{"hfe"}},
	}})
	p, err := cat.Get("")
	if err != nil {
		t.Fatalf("Get(\"\"): %v", err)
	}
	if p.Name != "a" {
		t.Errorf("Get(\"\") = %q, want default", p.Name)
	}
	p, err = cat.Get("b")
	if err != nil {
		t.Fatalf("Get(\"b\"): %v", err)
	}
	if !p.SupportsVariant("HFE") {
		t.Error("expected case-insensitive variant match")
	}
}

func TestGetUnknownProfile(t *testing.T) {
	cat, _ := newCatalog(fileConfig{Default: "a", Drive: []fileDrive{
		{Name: "a", Cyls: 35, Heads: 1, RPM: 300, MaxKBps: 250, Variants: []string{"d64"}},
	}})
	if _, err := cat.Get("nonexistent"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}
