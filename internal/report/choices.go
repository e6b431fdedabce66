package report

// Choice is one allowed value of an enumerated field with its display label.
type Choice struct {
	Value string
	Label string
}

// TypeRapport is the subject a report covers.
type TypeRapport string

const (
	TypeOccupation   TypeRapport = "occupation"
	TypeCentre       TypeRapport = "centre"
	TypeStatut       TypeRapport = "statut"
	TypeTypeOffre    TypeRapport = "type_offre"
	TypeEvenement    TypeRapport = "evenement"
	TypeRecrutement  TypeRapport = "recrutement"
	TypePartenaire   TypeRapport = "partenaire"
	TypeSatisfaction TypeRapport = "satisfaction"
	TypeFormation    TypeRapport = "formation"
	TypeVAEJury      TypeRapport = "vae_jury"
	TypeAnnuel       TypeRapport = "annuel"
	TypeUtilisateur  TypeRapport = "utilisateur"
)

// TypeChoices lists every report type in display order.
var TypeChoices = []Choice{
	{string(TypeOccupation), "Occupation des formations"},
	{string(TypeCentre), "Performance par centre"},
	{string(TypeStatut), "Analyse des statuts"},
	{string(TypeTypeOffre), "Analyse par type d'offre"},
	{string(TypeEvenement), "Analyse des événements"},
	{string(TypeRecrutement), "Suivi du recrutement"},
	{string(TypePartenaire), "Analyse des partenaires"},
	{string(TypeSatisfaction), "Satisfaction des stagiaires"},
	{string(TypeFormation), "Suivi des formations"},
	{string(TypeVAEJury), "Suivi des jurys et VAE"},
	{string(TypeAnnuel), "Bilan annuel"},
	{string(TypeUtilisateur), "Activité des utilisateurs"},
}

// Periode is the reporting period of a report.
type Periode string

const (
	PeriodeQuotidien    Periode = "quotidien"
	PeriodeHebdomadaire Periode = "hebdomadaire"
	PeriodeMensuel      Periode = "mensuel"
	PeriodeTrimestriel  Periode = "trimestriel"
	PeriodeAnnuel       Periode = "annuel"
	PeriodePersonnalise Periode = "personnalise"
)

// PeriodeChoices lists every period in display order.
var PeriodeChoices = []Choice{
	{string(PeriodeQuotidien), "Quotidien"},
	{string(PeriodeHebdomadaire), "Hebdomadaire"},
	{string(PeriodeMensuel), "Mensuel"},
	{string(PeriodeTrimestriel), "Trimestriel"},
	{string(PeriodeAnnuel), "Annuel"},
	{string(PeriodePersonnalise), "Personnalisé"},
}

// MaxSpanByPeriode bounds the inclusive day count between DateDebut and
// DateFin. A period missing from the table (personnalise) is unbounded.
var MaxSpanByPeriode = map[Periode]int{
	PeriodeQuotidien:    1,
	PeriodeHebdomadaire: 7,
	PeriodeMensuel:      31,
	PeriodeTrimestriel:  92,
	PeriodeAnnuel:       366,
}

// Format is the rendering format of a report.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
	FormatHTML  Format = "html"
	FormatJSON  Format = "json"
)

// FormatChoices lists every output format in display order.
var FormatChoices = []Choice{
	{string(FormatPDF), "PDF"},
	{string(FormatExcel), "Excel"},
	{string(FormatHTML), "HTML"},
	{string(FormatJSON), "JSON"},
}

func (t TypeRapport) Valid() bool   { return lookup(TypeChoices, string(t)) != nil }
func (t TypeRapport) Label() string { return labelOf(TypeChoices, string(t)) }
func (p Periode) Valid() bool       { return lookup(PeriodeChoices, string(p)) != nil }
func (p Periode) Label() string     { return labelOf(PeriodeChoices, string(p)) }
func (f Format) Valid() bool        { return lookup(FormatChoices, string(f)) != nil }
func (f Format) Label() string      { return labelOf(FormatChoices, string(f)) }

// MaxSpan returns the period's bound in days and whether it is bounded.
func (p Periode) MaxSpan() (int, bool) {
	days, ok := MaxSpanByPeriode[p]
	return days, ok
}

func lookup(choices []Choice, v string) *Choice {
	for i := range choices {
		if choices[i].Value == v {
			return &choices[i]
		}
	}
	return nil
}

func labelOf(choices []Choice, v string) string {
	if c := lookup(choices, v); c != nil {
		return c.Label
	}
	return v
}
