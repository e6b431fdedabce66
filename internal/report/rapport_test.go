package report

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func validRapport() *Rapport {
	return &Rapport{
		Nom:         "Occupation mai",
		TypeRapport: TypeOccupation,
		Periode:     PeriodeMensuel,
		DateDebut:   day("2024-05-01"),
		DateFin:     day("2024-05-31"),
		Format:      FormatPDF,
		Donnees:     json.RawMessage(`{"taux": 0.82}`),
	}
}

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestClean_Valid(t *testing.T) {
	assert.NoError(t, validRapport().Clean())
}

func TestClean_InvertedRange(t *testing.T) {
	r := validRapport()
	r.DateDebut = day("2024-05-10")
	r.DateFin = day("2024-05-09")

	fields := fieldErrors(t, r.Clean())
	assert.Len(t, fields, 2)
	assert.Len(t, fields["date_debut"], 1)
	assert.Len(t, fields["date_fin"], 1)
}

func TestClean_SpanOverPeriodBound(t *testing.T) {
	r := validRapport()
	r.Periode = PeriodeMensuel
	r.DateDebut = day("2024-01-01")
	r.DateFin = day("2024-03-01")

	fields := fieldErrors(t, r.Clean())
	assert.Equal(t, []string{"date_fin"}, keys(fields))
	assert.Contains(t, fields["date_fin"][0], "31 days")
}

func TestClean_CustomPeriodIsUnbounded(t *testing.T) {
	r := validRapport()
	r.Periode = PeriodePersonnalise
	r.DateDebut = day("2015-01-01")
	r.DateFin = day("2024-12-31")
	assert.NoError(t, r.Clean())
}

func TestClean_PeriodBounds(t *testing.T) {
	tests := []struct {
		periode Periode
		debut   string
		fin     string
		ok      bool
	}{
		{PeriodeQuotidien, "2024-05-10", "2024-05-10", true},
		{PeriodeQuotidien, "2024-05-10", "2024-05-11", false},
		{PeriodeHebdomadaire, "2024-05-06", "2024-05-12", true},
		{PeriodeHebdomadaire, "2024-05-06", "2024-05-13", false},
		{PeriodeMensuel, "2024-01-01", "2024-01-31", true},
		{PeriodeTrimestriel, "2024-07-01", "2024-09-30", true},
		{PeriodeTrimestriel, "2024-07-01", "2024-10-01", false},
		{PeriodeAnnuel, "2024-01-01", "2024-12-31", true},
		{PeriodeAnnuel, "2024-01-01", "2025-01-01", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.periode)+"_"+tt.debut+"_"+tt.fin, func(t *testing.T) {
			r := validRapport()
			r.Periode = tt.periode
			r.DateDebut = day(tt.debut)
			r.DateFin = day(tt.fin)
			err := r.Clean()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, []string{"date_fin"}, keys(fieldErrors(t, err)))
		})
	}
}

func TestClean_UnknownChoicesAndRequired(t *testing.T) {
	r := &Rapport{
		TypeRapport: "ventes",
		Periode:     "biannuel",
		Format:      "docx",
		Donnees:     json.RawMessage(`{broken`),
	}
	fields := fieldErrors(t, r.Clean())
	assert.Equal(t, []string{"date_debut", "date_fin", "donnees", "format", "nom", "periode", "type_rapport"}, keys(fields))
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{}
	err.add("date_fin", "too late")
	err.add("date_debut", "too early")
	assert.Equal(t, "invalid rapport: date_debut: too early, date_fin: too late", err.Error())
}

func TestRapport_ComputedMembers(t *testing.T) {
	r := validRapport()
	assert.Equal(t, 31, r.DureeJours())
	assert.False(t, r.EstPersonnalise())
	assert.Equal(t, "Occupation mai - Occupation des formations (mensuel)", r.String())

	r.Periode = PeriodePersonnalise
	assert.True(t, r.EstPersonnalise())

	assert.Equal(t, 0, (&Rapport{}).DureeJours())
}

func TestRapport_IsRecent(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	r := validRapport()
	assert.False(t, r.IsRecent(now), "unsaved reports are never recent")

	r.CreatedAt = now.Add(-48 * time.Hour)
	assert.True(t, r.IsRecent(now))
	r.CreatedAt = now.Add(-8 * 24 * time.Hour)
	assert.False(t, r.IsRecent(now))
}

func TestRapport_ToDict(t *testing.T) {
	r := validRapport()
	centre := "c-12"
	r.Centre = &centre
	d := r.ToDict()

	assert.Equal(t, "2024-05-01", d["date_debut"])
	assert.Equal(t, "Occupation des formations", d["type_display"])
	assert.Equal(t, "c-12", d["centre"])
	assert.Nil(t, d["formation"])
	assert.Nil(t, d["created_at"])
	assert.Equal(t, map[string]any{"taux": 0.82}, d["donnees"])

	_, err := json.Marshal(d)
	assert.NoError(t, err)
}

func TestRapport_CloneIsDeep(t *testing.T) {
	r := validRapport()
	centre := "c-1"
	r.Centre = &centre
	c := r.clone()
	*c.Centre = "c-2"
	c.Donnees[0] = '['
	assert.Equal(t, "c-1", *r.Centre)
	assert.Equal(t, byte('{'), r.Donnees[0])
}

func TestChoices(t *testing.T) {
	assert.Len(t, TypeChoices, 12)
	assert.True(t, TypeVAEJury.Valid())
	assert.Equal(t, "Personnalisé", PeriodePersonnalise.Label())
	assert.Equal(t, "unknown", Format("unknown").Label())

	_, bounded := PeriodePersonnalise.MaxSpan()
	assert.False(t, bounded)
	days, bounded := PeriodeTrimestriel.MaxSpan()
	assert.True(t, bounded)
	assert.Equal(t, 92, days)
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
