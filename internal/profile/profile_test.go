package profile

import (
	"strings"
	"testing"
)

func TestLookup_AllNamedProfiles(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, ok := Lookup(name)
			if !ok || p == nil {
				t.Fatalf("Lookup(%q) returned nothing", name)
			}
			if p.Name != name {
				t.Errorf("profile name = %q, want %q", p.Name, name)
			}
			if len(p.RequiredFields) == 0 {
				t.Errorf("profile %q has no required fields", name)
			}
		})
	}
}

func TestNames_Count(t *testing.T) {
	if n := len(Names()); n != 15 {
		t.Errorf("expected 15 specialized profiles, got %d", n)
	}
}

func TestLookup_ExactNameOnly(t *testing.T) {
	if _, ok := Lookup("formation"); ok {
		t.Error("lookup must be case-sensitive on kind name")
	}
}

func TestGet_UnknownName(t *testing.T) {
	_, err := Get("Nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown profile, got nil")
	}
	if !strings.Contains(err.Error(), "Formation") {
		t.Errorf("error should list valid profiles: %v", err)
	}
}

func TestLookup_ReturnsFreshCopy(t *testing.T) {
	p1, _ := Lookup("VAE")
	p1.RequiredFields[0] = "mutated"
	p2, _ := Lookup("VAE")
	if p2.RequiredFields[0] == "mutated" {
		t.Error("profiles must not share state between lookups")
	}
}

func TestDescribe_ContainsSections(t *testing.T) {
	p, _ := Get("Formation")
	out := p.Describe()
	for _, want := range []string{"Profile: Formation", "Required properties", "taux_saturation"} {
		if !strings.Contains(out, want) {
			t.Errorf("Describe missing %q: %q", want, out)
		}
	}
}

func TestConstants_SplitsRequiredAndDisputed(t *testing.T) {
	required, disputed := Constants("TypeOffre")
	if !contains(required, "CRIF") || contains(required, "SKILL") {
		t.Errorf("required = %v", required)
	}
	for _, want := range []string{"SKILL", "WEBINAIRE", "TYPE_OFFRE_CHOICES"} {
		if !contains(disputed, want) {
			t.Errorf("disputed missing %s: %v", want, disputed)
		}
	}
}

func TestConstants_UnknownKind(t *testing.T) {
	required, disputed := Constants("Centre")
	if len(required) != 0 || len(disputed) != 0 {
		t.Errorf("expected no constants for Centre, got %v / %v", required, disputed)
	}
}

func TestStateMethods(t *testing.T) {
	got := StateMethods("VAE")
	if len(got) != 2 || got[0] != "is_en_cours" {
		t.Errorf("StateMethods(VAE) = %v", got)
	}
	if StateMethods("Centre") != nil {
		t.Error("expected nil for kind without state table")
	}
}

func contains(list []string, s string) bool {
	for _, it := range list {
		if it == s {
			return true
		}
	}
	return false
}
