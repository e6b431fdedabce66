package pysource

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/modelcritic/internal/kind"
	"github.com/dshills/modelcritic/internal/rules"
)

func loadProject(t *testing.T) map[string]*kind.Descriptor {
	t.Helper()
	src := NewSource("testdata/project", nil, nil, hclog.NewNullLogger())
	kinds, err := src.Kinds(context.Background())
	require.NoError(t, err)
	out := map[string]*kind.Descriptor{}
	for _, d := range kinds {
		out[d.QualifiedName()] = d
	}
	return out
}

func TestSource_KindsOrderAndNamespaces(t *testing.T) {
	src := NewSource("testdata/project", nil, nil, nil)
	kinds, err := src.Kinds(context.Background())
	require.NoError(t, err)

	var names []string
	for _, d := range kinds {
		names = append(names, d.QualifiedName())
	}
	assert.Equal(t, []string{
		"auth.Group",
		"centres.Centre",
		"formations.Formation",
		"formations.HistoriqueFormation",
	}, names, "abstract bases and non-model classes are skipped")
}

func TestSource_Exclude(t *testing.T) {
	src := NewSource("testdata/project", nil, []string{"auth/**"}, nil)
	kinds, err := src.Kinds(context.Background())
	require.NoError(t, err)
	for _, d := range kinds {
		assert.NotEqual(t, "auth", d.Namespace)
	}
}

func TestSource_MissingRoot(t *testing.T) {
	src := NewSource("testdata/nope", nil, nil, nil)
	_, err := src.Kinds(context.Background())
	assert.Error(t, err)
}

func TestExtract_FormationFields(t *testing.T) {
	d := loadProject(t)["formations.Formation"]
	require.NotNil(t, d)

	var names []string
	for _, f := range d.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"created_at", "updated_at", "created_by", "updated_by",
		"nom", "centre", "partenaires", "cap", "taux", "prevus", "est_active",
	}, names)

	f, _ := d.Field("created_by")
	assert.True(t, f.Inherited)
	assert.Equal(t, "+", f.RelatedName)

	f, _ = d.Field("nom")
	assert.Equal(t, kind.FieldText, f.Kind)
	assert.Equal(t, "Nom", f.VerboseName)
	assert.True(t, f.Index)
	assert.False(t, f.Inherited)

	f, _ = d.Field("centre")
	assert.Equal(t, kind.FieldForeign, f.Kind)
	assert.Equal(t, "Centre", f.RelatedKind)
	assert.Equal(t, "formations", f.RelatedName)
	assert.Equal(t, "Centre", f.VerboseName)

	f, _ = d.Field("partenaires")
	assert.Equal(t, kind.FieldMany, f.Kind)
	assert.Equal(t, "%(class)s_set", f.RelatedName)

	f, _ = d.Field("cap")
	assert.Equal(t, kind.FieldInteger, f.Kind)
	assert.True(t, f.HasDefault)
	assert.Equal(t, "0", f.Default)
	assert.Equal(t, "Capacité", f.VerboseName)

	f, _ = d.Field("taux")
	assert.Equal(t, kind.FieldDecimal, f.Kind)
	assert.False(t, f.HasDefault)
	assert.False(t, f.Null)

	f, _ = d.Field("prevus")
	assert.True(t, f.Null)
	assert.Equal(t, "Places prévues", f.HelpText)
}

func TestExtract_FormationMembersAndMeta(t *testing.T) {
	d := loadProject(t)["formations.Formation"]
	require.NotNil(t, d)

	assert.Equal(t, []string{"places_disponibles"}, d.Properties)
	assert.Equal(t, []string{"get_inscrits", "is_full"}, d.Helpers)
	assert.Contains(t, d.Methods, "save")
	assert.Contains(t, d.Methods, "__str__", "inherited from the abstract base")

	assert.True(t, d.HasConstant("STATUS_CHOICES"))
	assert.True(t, d.HasConstant("MAX_INSCRITS"))

	assert.Equal(t, "Formation", d.Meta.VerboseName)
	assert.Equal(t, []string{"-start_date", "nom"}, d.Meta.Ordering)
	assert.Equal(t, [][]string{{"nom"}, {"centre", "est_active"}}, d.Meta.Indexes)
	assert.Equal(t, []string{"objects"}, d.Meta.Managers)

	assert.Contains(t, d.Doc, "Une formation")
	assert.NotContains(t, d.Doc, "hunter2")
}

func TestExtract_SaveAnalysis(t *testing.T) {
	kinds := loadProject(t)

	tests := []struct {
		kind                                 string
		fullClean, atomic, logs, explicitLvl kind.Flag
	}{
		{"formations.Formation", kind.Yes, kind.Yes, kind.Yes, kind.Yes},
		{"formations.HistoriqueFormation", kind.No, kind.No, kind.Yes, kind.No},
		{"centres.Centre", kind.No, kind.Yes, kind.No, kind.No},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			d := kinds[tt.kind]
			require.NotNil(t, d)
			c := d.Capabilities
			assert.True(t, c.HasSave)
			assert.Equal(t, tt.fullClean, c.FullCleanOnSave, "full_clean")
			assert.Equal(t, tt.atomic, c.AtomicSave, "atomic")
			assert.Equal(t, tt.logs, c.LogsOnSave, "logs")
			assert.Equal(t, tt.explicitLvl, c.LogLevelExplicit, "explicit level")
		})
	}
}

func TestExtract_CapabilityMarkers(t *testing.T) {
	kinds := loadProject(t)

	f := kinds["formations.Formation"].Capabilities
	assert.True(t, f.HasStr)
	assert.True(t, f.HasClean)
	assert.True(t, f.HasSerializer)

	h := kinds["formations.HistoriqueFormation"]
	assert.Equal(t, []string{"-created_at"}, h.Meta.Ordering, "ordering inherited from the base Meta")
	rel, _ := h.Field("formation")
	assert.Equal(t, "Formation", rel.RelatedKind)

	g := kinds["auth.Group"].Capabilities
	assert.False(t, g.HasSave)
	assert.Equal(t, kind.No, g.AtomicSave)
}

func TestExtract_NamespaceSignals(t *testing.T) {
	kinds := loadProject(t)
	assert.Equal(t, []string{"post_delete", "post_save", "pre_save"}, kinds["formations.Formation"].Signals)
	assert.Equal(t, kinds["formations.Formation"].Signals, kinds["formations.HistoriqueFormation"].Signals)
	assert.Empty(t, kinds["centres.Centre"].Signals)
}

func TestExtract_GenericRelations(t *testing.T) {
	src := NewSource("testdata/contenttypes", nil, nil, nil)
	kinds, err := src.Kinds(context.Background())
	require.NoError(t, err)
	require.Len(t, kinds, 2)

	log := kinds[0]
	require.Equal(t, "LogUtilisateur", log.Name)
	f, ok := log.Field("content_object")
	require.True(t, ok, "generic foreign key is extracted as a field")
	assert.Equal(t, kind.FieldGeneric, f.Kind)
	assert.True(t, f.IsRelation())
	assert.Empty(t, f.RelatedKind, "positional args name the content type columns, not a kind")

	rel, ok := kinds[1].Field("journal")
	require.True(t, ok)
	assert.Equal(t, kind.FieldGeneric, rel.Kind)
	assert.Equal(t, "LogUtilisateur", rel.RelatedKind)

	findings, _ := rules.NewEngine(nil).Check(log, rules.Options{})
	for _, fd := range findings {
		assert.NotEqual(t, rules.RuleSpecialized, fd.Rule, fd.Message)
		if fd.Rule == rules.RuleFields {
			assert.NotContains(t, fd.Message, "content_object")
		}
	}

	findings, _ = rules.NewEngine(nil).Check(kinds[1], rules.Options{})
	for _, fd := range findings {
		if fd.Rule == rules.RuleFields {
			assert.NotContains(t, fd.Message, "relation journal")
		}
	}
}

func TestParseSource_Inline(t *testing.T) {
	src := []byte(`
from django.db import models
from django.db.models.signals import post_delete

class Rapport(models.Model):
    nom = models.CharField("Nom", max_length=255)
    donnees = models.JSONField(default=dict)
    FORMAT_CHOICES = ["pdf", "json"]

    @transaction.atomic()
    def save(self, *args, **kwargs):
        self.full_clean()
        logger.log(20, "saved")
        super().save(*args, **kwargs)

    @staticmethod
    def count_recent():
        return 0

post_delete.connect(lambda **kw: None, sender=Rapport)
`)
	kinds, err := ParseSource("rapports", src)
	require.NoError(t, err)
	require.Len(t, kinds, 1)

	d := kinds[0]
	assert.Equal(t, "rapports", d.Namespace)
	f, ok := d.Field("nom")
	require.True(t, ok)
	assert.Equal(t, "Nom", f.VerboseName)
	f, _ = d.Field("donnees")
	assert.Equal(t, kind.FieldJSON, f.Kind)
	assert.Equal(t, "dict", f.Default)

	assert.Equal(t, kind.Yes, d.Capabilities.AtomicSave)
	assert.Equal(t, kind.Yes, d.Capabilities.FullCleanOnSave)
	assert.Equal(t, kind.Yes, d.Capabilities.LogsOnSave)
	assert.Equal(t, kind.No, d.Capabilities.LogLevelExplicit)
	assert.Equal(t, []string{"count_recent"}, d.Helpers)
	assert.True(t, d.HasConstant("FORMAT_CHOICES"))
	assert.Equal(t, []string{"post_delete"}, d.Signals)
}

func TestNamespaceOf(t *testing.T) {
	cases := map[string]string{
		"formations/models.py":     "formations",
		"formations/models/vae.py": "formations",
		"apps/centres/models.py":   "apps/centres",
		"models.py":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, namespaceOf(in), in)
	}
}

func TestTrimQuotes(t *testing.T) {
	assert.Equal(t, "abc", trimQuotes(`"abc"`))
	assert.Equal(t, "abc", trimQuotes(`'abc'`))
	assert.Equal(t, "doc", trimQuotes(`"""doc"""`))
	assert.Equal(t, "raw", trimQuotes(`r"raw"`))
}
