// Package report implements the Rapport record: a generated report over a
// date range, its validation, an in-memory store and a render cache kept
// coherent through post_save/post_delete signals. Rapport is registered as a
// Go model so the auditor checks it like any other kind.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dshills/modelcritic/internal/kind"
)

// Namespace is the registry namespace of the report kinds.
const Namespace = "rapports"

// RecentWindow is how old a report may be and still count as recent.
const RecentWindow = 7 * 24 * time.Hour

const dateLayout = "2006-01-02"

// BaseModel carries the lifecycle fields every record kind shares.
type BaseModel struct {
	CreatedAt time.Time `db:"created_at" verbose:"Créé le"`
	UpdatedAt time.Time `db:"updated_at" verbose:"Mis à jour le"`
	CreatedBy *string   `db:"created_by" related:"User" reverse:"+" verbose:"Créé par"`
	UpdatedBy *string   `db:"updated_by" related:"User" reverse:"+" verbose:"Mis à jour par"`
}

// Rapport is one generated report.
type Rapport struct {
	BaseModel

	ID          string      `db:"id" pk:"true"`
	Nom         string      `db:"nom" verbose:"Nom du rapport"`
	TypeRapport TypeRapport `db:"type_rapport" verbose:"Type de rapport" index:"true"`
	Periode     Periode     `db:"periode" verbose:"Périodicité" default:"mensuel"`
	DateDebut   time.Time   `db:"date_debut" verbose:"Date de début"`
	DateFin     time.Time   `db:"date_fin" verbose:"Date de fin"`

	Centre    *string `db:"centre" related:"Centre" reverse:"rapports" verbose:"Centre" null:"true"`
	TypeOffre *string `db:"type_offre" related:"TypeOffre" reverse:"rapports" verbose:"Type d'offre" null:"true"`
	Statut    *string `db:"statut" related:"Statut" reverse:"rapports" verbose:"Statut" null:"true"`
	Formation *string `db:"formation" related:"Formation" reverse:"rapports" verbose:"Formation" null:"true"`

	Format          Format          `db:"format" verbose:"Format" default:"pdf"`
	Donnees         json.RawMessage `db:"donnees" verbose:"Données du rapport" default:"{}"`
	TempsGeneration *float64        `db:"temps_generation" verbose:"Temps de génération (s)" help:"seconds spent generating the payload"`
	EstAutomatique  bool            `db:"est_automatique" verbose:"Généré automatiquement" default:"false"`

	// previousType is set on the post_save instance of an update that moved
	// the report to another type.
	previousType TypeRapport
}

// ModelMeta declares what reflection cannot see. Store.Save validates with
// Clean, commits under the store lock and logs at explicit levels.
func (r *Rapport) ModelMeta() kind.Declaration {
	return kind.Declaration{
		VerboseName: "Rapport",
		Ordering:    []string{"-created_at"},
		Indexes: [][]string{
			{"type_rapport"},
			{"periode"},
			{"date_debut", "date_fin"},
		},
		Constants:        []string{"TYPE_CHOICES", "PERIODE_CHOICES", "FORMAT_CHOICES", "MAX_SPAN_BY_PERIODE"},
		Doc:              "A generated report over a date range.",
		FullCleanOnSave:  true,
		AtomicSave:       true,
		LogsOnSave:       true,
		LogLevelExplicit: true,
	}
}

// String returns "<nom> - <type label> (<periode>)".
func (r *Rapport) String() string {
	return fmt.Sprintf("%s - %s (%s)", r.Nom, r.TypeRapport.Label(), r.Periode)
}

// ValidationError maps field names to their messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", n, strings.Join(e.Fields[n], "; ")))
	}
	return "invalid rapport: " + strings.Join(parts, ", ")
}

// Clean validates the record. Invalid values are reported per field and never
// corrected. It returns nil or a *ValidationError.
func (r *Rapport) Clean() error {
	verr := &ValidationError{}

	if strings.TrimSpace(r.Nom) == "" {
		verr.add("nom", "this field is required")
	}
	if !r.TypeRapport.Valid() {
		verr.add("type_rapport", fmt.Sprintf("%q is not a valid choice", r.TypeRapport))
	}
	if !r.Periode.Valid() {
		verr.add("periode", fmt.Sprintf("%q is not a valid choice", r.Periode))
	}
	if !r.Format.Valid() {
		verr.add("format", fmt.Sprintf("%q is not a valid choice", r.Format))
	}
	if len(r.Donnees) > 0 && !json.Valid(r.Donnees) {
		verr.add("donnees", "payload is not valid JSON")
	}

	switch {
	case r.DateDebut.IsZero() || r.DateFin.IsZero():
		if r.DateDebut.IsZero() {
			verr.add("date_debut", "this field is required")
		}
		if r.DateFin.IsZero() {
			verr.add("date_fin", "this field is required")
		}
	case dateOnly(r.DateDebut).After(dateOnly(r.DateFin)):
		verr.add("date_debut", "start date must be on or before the end date")
		verr.add("date_fin", "end date must be on or after the start date")
	default:
		if limit, bounded := r.Periode.MaxSpan(); bounded {
			if span := r.DureeJours(); span > limit {
				verr.add("date_fin", fmt.Sprintf("a %s report spans at most %d days, got %d", r.Periode, limit, span))
			}
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// DureeJours is the inclusive number of days covered; 0 when a date is unset.
func (r *Rapport) DureeJours() int {
	if r.DateDebut.IsZero() || r.DateFin.IsZero() {
		return 0
	}
	d := dateOnly(r.DateFin).Sub(dateOnly(r.DateDebut))
	return int(d.Hours()/24) + 1
}

// EstPersonnalise reports whether the period is custom (unbounded).
func (r *Rapport) EstPersonnalise() bool {
	return r.Periode == PeriodePersonnalise
}

// IsRecent reports whether the report was created within RecentWindow of now.
func (r *Rapport) IsRecent(now time.Time) bool {
	return !r.CreatedAt.IsZero() && now.Sub(r.CreatedAt) <= RecentWindow
}

// Save validates and persists the report through s.
func (r *Rapport) Save(ctx context.Context, s *Store, user string) error {
	return s.Save(ctx, r, user)
}

// ToDict returns the serializable form of the record.
func (r *Rapport) ToDict() map[string]any {
	out := map[string]any{
		"id":               r.ID,
		"nom":              r.Nom,
		"type_rapport":     string(r.TypeRapport),
		"type_display":     r.TypeRapport.Label(),
		"periode":          string(r.Periode),
		"periode_display":  r.Periode.Label(),
		"date_debut":       formatDate(r.DateDebut),
		"date_fin":         formatDate(r.DateFin),
		"duree_jours":      r.DureeJours(),
		"format":           string(r.Format),
		"est_automatique":  r.EstAutomatique,
		"est_personnalise": r.EstPersonnalise(),
		"centre":           derefOrNil(r.Centre),
		"type_offre":       derefOrNil(r.TypeOffre),
		"statut":           derefOrNil(r.Statut),
		"formation":        derefOrNil(r.Formation),
		"temps_generation": nil,
		"donnees":          nil,
		"created_at":       formatTime(r.CreatedAt),
		"updated_at":       formatTime(r.UpdatedAt),
		"created_by":       derefOrNil(r.CreatedBy),
		"updated_by":       derefOrNil(r.UpdatedBy),
	}
	if r.TempsGeneration != nil {
		out["temps_generation"] = *r.TempsGeneration
	}
	if len(r.Donnees) > 0 {
		var payload any
		if err := json.Unmarshal(r.Donnees, &payload); err == nil {
			out["donnees"] = payload
		}
	}
	return out
}

func (r *Rapport) clone() *Rapport {
	c := *r
	c.CreatedBy = clonePtr(r.CreatedBy)
	c.UpdatedBy = clonePtr(r.UpdatedBy)
	c.Centre = clonePtr(r.Centre)
	c.TypeOffre = clonePtr(r.TypeOffre)
	c.Statut = clonePtr(r.Statut)
	c.Formation = clonePtr(r.Formation)
	c.TempsGeneration = clonePtr(r.TempsGeneration)
	c.Donnees = append(json.RawMessage(nil), r.Donnees...)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func derefOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
