package profile

import (
	"fmt"
	"sort"
	"strings"
)

// Profile lists what one named kind must expose on top of the generic
// contract. Names are compared normalized, so "taux_saturation" matches a Go
// method TauxSaturation.
type Profile struct {
	Name               string
	RequiredFields     []string
	RequiredProperties []string
	RequiredMethods    []string
}

var builtin = map[string]func() *Profile{
	"Formation":           formation,
	"HistoriqueFormation": historiqueFormation,
	"Commentaire":         commentaire,
	"Document":            document,
	"Evenement":           evenement,
	"VAE":                 vae,
	"Centre":              centre,
	"TypeOffre":           typeOffre,
	"Statut":              statut,
	"Partenaire":          partenaire,
	"Prospection":         prospection,
	"Appairage":           appairage,
	"Candidat":            candidat,
	"LogUtilisateur":      logUtilisateur,
	"Rapport":             rapport,
}

// Lookup returns the profile for an exact kind name.
func Lookup(kindName string) (*Profile, bool) {
	ctor, ok := builtin[kindName]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Get is Lookup with an error naming the valid profiles.
func Get(kindName string) (*Profile, error) {
	if p, ok := Lookup(kindName); ok {
		return p, nil
	}
	return nil, fmt.Errorf("unknown profile %q: valid profiles are %s", kindName, strings.Join(Names(), ", "))
}

// Names returns every profiled kind name in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe renders the profile as a bullet list, used by `modelcritic rules`.
func (p *Profile) Describe() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Profile: %s\n", p.Name))
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(fmt.Sprintf("\n%s:\n", title))
		for _, it := range items {
			sb.WriteString(fmt.Sprintf("- %s\n", it))
		}
	}
	section("Required fields", p.RequiredFields)
	section("Required properties", p.RequiredProperties)
	section("Required methods", p.RequiredMethods)
	return sb.String()
}
