package kind

import (
	"sort"
	"strings"
)

// FieldKind is the primitive storage class of a field.
type FieldKind string

const (
	FieldText    FieldKind = "text"
	FieldInteger FieldKind = "integer"
	FieldDecimal FieldKind = "decimal"
	FieldFloat   FieldKind = "float"
	FieldBoolean FieldKind = "boolean"
	FieldDate    FieldKind = "date"
	FieldForeign FieldKind = "foreign"
	FieldMany    FieldKind = "many"
	FieldGeneric FieldKind = "generic"
	FieldJSON    FieldKind = "json"
	FieldOther   FieldKind = "other"
)

// IsNumeric reports whether values of k are numbers.
func (k FieldKind) IsNumeric() bool {
	switch k {
	case FieldInteger, FieldDecimal, FieldFloat:
		return true
	}
	return false
}

// IsRelation reports whether k references another kind. Generic relations
// resolve their target through a content type and declare no reverse name.
func (k FieldKind) IsRelation() bool {
	return k == FieldForeign || k == FieldMany || k == FieldGeneric
}

// Flag is a tri-state capability: extraction either proved a behavior,
// disproved it, or could not tell.
type Flag int

const (
	Unknown Flag = iota
	Yes
	No
)

// FlagOf converts a known boolean into a Flag.
func FlagOf(b bool) Flag {
	if b {
		return Yes
	}
	return No
}

func (f Flag) String() string {
	switch f {
	case Yes:
		return "yes"
	case No:
		return "no"
	}
	return "unknown"
}

// MarshalText lets Flag round-trip through YAML and JSON as a word.
func (f Flag) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText accepts yes/no/true/false/unknown.
func (f *Flag) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "yes", "true":
		*f = Yes
	case "no", "false":
		*f = No
	default:
		*f = Unknown
	}
	return nil
}

// Field describes one attribute of a kind.
type Field struct {
	Name        string    `yaml:"name" json:"name"`
	Kind        FieldKind `yaml:"kind" json:"kind"`
	Null        bool      `yaml:"nullable,omitempty" json:"null,omitempty"`
	HasDefault  bool      `yaml:"has_default,omitempty" json:"has_default,omitempty"`
	Default     string    `yaml:"default,omitempty" json:"default,omitempty"`
	VerboseName string    `yaml:"verbose_name,omitempty" json:"verbose_name,omitempty"`
	HelpText    string    `yaml:"help_text,omitempty" json:"help_text,omitempty"`
	Validators  []string  `yaml:"validators,omitempty" json:"validators,omitempty"`
	Index       bool      `yaml:"db_index,omitempty" json:"db_index,omitempty"`
	Unique      bool      `yaml:"unique,omitempty" json:"unique,omitempty"`
	PrimaryKey  bool      `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	RelatedKind string    `yaml:"related_kind,omitempty" json:"related_kind,omitempty"`
	RelatedName string    `yaml:"related_name,omitempty" json:"related_name,omitempty"`
	// Inherited marks fields declared on a shared base rather than the kind itself.
	Inherited bool `yaml:"inherited,omitempty" json:"inherited,omitempty"`
}

// IsRelation reports whether the field references another kind.
func (f Field) IsRelation() bool { return f.Kind.IsRelation() }

// Meta is the class-level metadata of a kind.
type Meta struct {
	VerboseName string     `yaml:"verbose_name,omitempty" json:"verbose_name,omitempty"`
	Ordering    []string   `yaml:"ordering,omitempty" json:"ordering,omitempty"`
	Indexes     [][]string `yaml:"indexes,omitempty" json:"indexes,omitempty"`
	Managers    []string   `yaml:"managers,omitempty" json:"managers,omitempty"`
}

// Capabilities are the behavior markers rules reason about.
type Capabilities struct {
	HasStr        bool `yaml:"has_str,omitempty" json:"has_str,omitempty"`
	HasSave       bool `yaml:"has_save,omitempty" json:"has_save,omitempty"`
	HasClean      bool `yaml:"has_clean,omitempty" json:"has_clean,omitempty"`
	HasSerializer bool `yaml:"has_serializer,omitempty" json:"has_serializer,omitempty"`

	FullCleanOnSave  Flag `yaml:"full_clean_on_save,omitempty" json:"full_clean_on_save,omitempty"`
	AtomicSave       Flag `yaml:"atomic_save,omitempty" json:"atomic_save,omitempty"`
	LogsOnSave       Flag `yaml:"logs_on_save,omitempty" json:"logs_on_save,omitempty"`
	LogLevelExplicit Flag `yaml:"log_level_explicit,omitempty" json:"log_level_explicit,omitempty"`
}

// Traits are declared semantic markers.
type Traits struct {
	// AuditTrail kinds record history and are held to a stricter bar.
	AuditTrail bool `yaml:"audit_trail,omitempty" json:"audit_trail,omitempty"`
}

// Descriptor is a static snapshot of one record-kind definition.
type Descriptor struct {
	Name         string          `yaml:"name" json:"name"`
	Namespace    string          `yaml:"namespace" json:"namespace"`
	Source       string          `yaml:"source,omitempty" json:"source,omitempty"`
	Doc          string          `yaml:"doc,omitempty" json:"doc,omitempty"`
	Fields       []Field         `yaml:"fields,omitempty" json:"fields,omitempty"`
	Methods      []string        `yaml:"methods,omitempty" json:"methods,omitempty"`
	Properties   []string        `yaml:"properties,omitempty" json:"properties,omitempty"`
	Helpers      []string        `yaml:"helpers,omitempty" json:"helpers,omitempty"`
	Constants    map[string]bool `yaml:"constants,omitempty" json:"constants,omitempty"`
	Meta         Meta            `yaml:"meta,omitempty" json:"meta,omitempty"`
	Capabilities Capabilities    `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Traits       Traits          `yaml:"traits,omitempty" json:"traits,omitempty"`
	// Signals lists the reactive hooks wired anywhere in the owning namespace.
	Signals  []string `yaml:"signals,omitempty" json:"signals,omitempty"`
	Problems []string `yaml:"problems,omitempty" json:"problems,omitempty"`
}

// QualifiedName returns "namespace.Name".
func (d *Descriptor) QualifiedName() string {
	if d.Namespace == "" {
		return d.Name
	}
	return d.Namespace + "." + d.Name
}

// Field returns the field with the given name.
func (d *Descriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasField matches a field by normalized name.
func (d *Descriptor) HasField(name string) bool {
	n := Normalize(name)
	for _, f := range d.Fields {
		if Normalize(f.Name) == n {
			return true
		}
	}
	return false
}

// HasMethod matches a method, computed property or helper by normalized name.
func (d *Descriptor) HasMethod(name string) bool {
	n := Normalize(name)
	for _, group := range [][]string{d.Methods, d.Properties, d.Helpers} {
		for _, m := range group {
			if Normalize(m) == n {
				return true
			}
		}
	}
	return false
}

// HasConstant reports whether the class-level constant is declared.
func (d *Descriptor) HasConstant(name string) bool {
	return d.Constants[name]
}

// HasIndex reports whether any explicit secondary index is declared.
func (d *Descriptor) HasIndex() bool {
	if len(d.Meta.Indexes) > 0 {
		return true
	}
	for _, f := range d.Fields {
		if f.Index {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hand out descriptors without
// sharing backing arrays.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.Fields = make([]Field, len(d.Fields))
	for i, f := range d.Fields {
		f.Validators = append([]string(nil), f.Validators...)
		c.Fields[i] = f
	}
	c.Methods = append([]string(nil), d.Methods...)
	c.Properties = append([]string(nil), d.Properties...)
	c.Helpers = append([]string(nil), d.Helpers...)
	c.Signals = append([]string(nil), d.Signals...)
	c.Problems = append([]string(nil), d.Problems...)
	c.Meta.Ordering = append([]string(nil), d.Meta.Ordering...)
	c.Meta.Managers = append([]string(nil), d.Meta.Managers...)
	c.Meta.Indexes = make([][]string, len(d.Meta.Indexes))
	for i, idx := range d.Meta.Indexes {
		c.Meta.Indexes[i] = append([]string(nil), idx...)
	}
	if d.Constants != nil {
		c.Constants = make(map[string]bool, len(d.Constants))
		for k, v := range d.Constants {
			c.Constants[k] = v
		}
	}
	return &c
}

// ConstantNames returns the declared constant names in sorted order.
func (d *Descriptor) ConstantNames() []string {
	names := make([]string, 0, len(d.Constants))
	for k, ok := range d.Constants {
		if ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Normalize folds a member name for cross-language comparison:
// "ToDict", "to_dict" and "todict" all become "todict".
func Normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}
