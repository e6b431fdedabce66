package profile

import "sort"

// Two generations of the house contract disagree on the constant sets of a
// few kinds. Constants both agree on are mandatory; the rest are reported as
// disputed until product settles which list is authoritative.
var (
	coreConstants = map[string][]string{
		"TypeOffre": {
			"CRIF", "ALTERNANCE", "POEC", "POEI", "TOSA", "AUTRE", "NON_DEFINI", "TYPE_OFFRE_CHOICES",
		},
		"Statut": {
			"NON_DEFINI", "RECRUTEMENT_EN_COURS", "FORMATION_EN_COURS", "FORMATION_A_ANNULER",
			"FORMATION_A_REPORTER", "FORMATION_ANNULEE", "FORMATION_REPORTEE", "PLEIN", "AUTRE",
			"STATUT_CHOICES",
		},
		"VAE":         {"STATUT_CHOICES", "STATUTS_EN_COURS", "STATUTS_TERMINES"},
		"Prospection": {"STATUT_CHOICES", "OBJECTIF_CHOICES", "MOTIF_CHOICES"},
		"Evenement":   {"TYPE_EVENEMENT_CHOICES"},
		"Rapport":     {"TYPE_CHOICES", "PERIODE_CHOICES", "FORMAT_CHOICES", "MAX_SPAN_BY_PERIODE"},
	}

	extendedConstants = map[string][]string{
		"TypeOffre": {
			"CRIF", "ALTERNANCE", "POEC", "POEI", "TOSA", "AUTRE", "NON_DEFINI",
			"SKILL", "WEBINAIRE", "COULEURS_PAR_DEFAUT",
		},
		"Statut": {
			"NON_DEFINI", "RECRUTEMENT_EN_COURS", "FORMATION_EN_COURS", "FORMATION_A_ANNULER",
			"FORMATION_A_REPORTER", "FORMATION_ANNULEE", "FORMATION_REPORTEE", "PLEIN", "AUTRE",
			"STATUTS_ACTIFS",
		},
		"VAE":         {"STATUT_CHOICES", "STATUTS_EN_COURS", "STATUTS_TERMINES"},
		"Prospection": {"STATUT_CHOICES", "OBJECTIF_CHOICES", "MOTIF_CHOICES"},
		"Evenement":   {"TYPE_EVENEMENT_CHOICES"},
		"Rapport":     {"TYPE_CHOICES", "PERIODE_CHOICES", "FORMAT_CHOICES", "MAX_SPAN_BY_PERIODE"},
	}
)

var stateMethods = map[string][]string{
	"Formation":   {"is_active", "is_a_venir", "is_terminee", "is_a_recruter"},
	"VAE":         {"is_en_cours", "is_terminee"},
	"Prospection": {"is_active", "relance_necessaire"},
	"Appairage":   {"est_actif"},
	"Evenement":   {"is_past", "is_today", "is_upcoming"},
	"Rapport":     {"est_personnalise", "is_recent"},
}

// Constants returns the constants every contract variant requires for the
// kind, and the ones only some variants require. Both slices are sorted.
func Constants(kindName string) (required, disputed []string) {
	a, b := coreConstants[kindName], extendedConstants[kindName]
	inA := toSet(a)
	inB := toSet(b)
	for n := range inA {
		if inB[n] {
			required = append(required, n)
		} else {
			disputed = append(disputed, n)
		}
	}
	for n := range inB {
		if !inA[n] {
			disputed = append(disputed, n)
		}
	}
	sort.Strings(required)
	sort.Strings(disputed)
	return required, disputed
}

// StateMethods returns the expected state-query methods for the kind.
func StateMethods(kindName string) []string {
	return append([]string(nil), stateMethods[kindName]...)
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}
