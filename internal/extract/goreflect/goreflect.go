// Package goreflect builds kind descriptors from registered Go structs.
//
// Fields come from exported struct fields and their tags:
//
//	db        column name ("-" skips the field)
//	kind      storage class override (text, integer, decimal, ...)
//	verbose   human label
//	help      help text
//	default   declared default (presence sets HasDefault)
//	null      "true" allows NULL; pointer types are nullable too
//	index     "true" declares a secondary index
//	unique    "true"
//	pk        "true" marks the primary key
//	related   related kind name; makes the field a relation
//	reverse   reverse accessor name
//	validate  comma-separated validator names
//
// Embedded structs contribute their fields as inherited.
package goreflect

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/dshills/modelcritic/internal/kind"
	"github.com/dshills/modelcritic/internal/redact"
)

// SignalLookup reports which signals a namespace has wired.
type SignalLookup interface {
	Signals(namespace string) []string
}

type registration struct {
	namespace string
	model     any
}

// Source is a registry source backed by Go types.
type Source struct {
	models  []registration
	signals SignalLookup
}

// NewSource returns a Source; signals may be nil.
func NewSource(signals SignalLookup) *Source {
	return &Source{signals: signals}
}

// Register adds a model (a struct value or pointer) under namespace.
func (s *Source) Register(namespace string, model any) {
	s.models = append(s.models, registration{namespace: namespace, model: model})
}

// Name identifies the source in logs.
func (s *Source) Name() string { return "go" }

// Kinds extracts one descriptor per registered model, in registration order.
func (s *Source) Kinds(ctx context.Context) ([]*kind.Descriptor, error) {
	var out []*kind.Descriptor
	for _, reg := range s.models {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		d, err := Extract(reg.namespace, reg.model)
		if err != nil {
			return out, err
		}
		if s.signals != nil {
			d.Signals = s.signals.Signals(reg.namespace)
		}
		out = append(out, d)
	}
	return out, nil
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
)

// hook method names mapped to the capability they prove.
var (
	strMethods        = map[string]bool{"String": true}
	saveMethods       = map[string]bool{"Save": true}
	cleanMethods      = map[string]bool{"Clean": true, "Validate": true, "FullClean": true}
	serializerMethods = map[string]bool{"ToMap": true, "ToDict": true, "Serialize": true, "AsDict": true, "ToSerializableDict": true}
	skipMethods       = map[string]bool{"ModelMeta": true}
)

// Extract builds the descriptor of one Go model.
func Extract(namespace string, model any) (*kind.Descriptor, error) {
	t := reflect.TypeOf(model)
	if t == nil {
		return nil, fmt.Errorf("register %s: nil model", namespace)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("register %s: %s is not a struct", namespace, t)
	}

	d := &kind.Descriptor{
		Name:      t.Name(),
		Namespace: namespace,
		Source:    fmt.Sprintf("go:%s.%s", t.PkgPath(), t.Name()),
		Constants: map[string]bool{},
	}
	d.Fields = structFields(t, false)
	extractMethods(reflect.PointerTo(t), d)

	decl, declared := declarationOf(t)
	if declared {
		applyDeclaration(d, decl)
	} else {
		d.Problems = append(d.Problems, "no ModelMeta declaration; save behavior cannot be verified")
	}
	redact.Descriptor(d)
	return d, nil
}

func declarationOf(t reflect.Type) (kind.Declaration, bool) {
	v := reflect.New(t)
	if dec, ok := v.Interface().(kind.Declarer); ok {
		return dec.ModelMeta(), true
	}
	return kind.Declaration{}, false
}

func applyDeclaration(d *kind.Descriptor, decl kind.Declaration) {
	d.Doc = decl.Doc
	d.Traits = decl.Traits
	d.Meta = kind.Meta{
		VerboseName: decl.VerboseName,
		Ordering:    decl.Ordering,
		Indexes:     decl.Indexes,
		Managers:    decl.Managers,
	}
	for _, c := range decl.Constants {
		d.Constants[c] = true
	}
	d.Capabilities.FullCleanOnSave = kind.FlagOf(decl.FullCleanOnSave)
	d.Capabilities.AtomicSave = kind.FlagOf(decl.AtomicSave)
	d.Capabilities.LogsOnSave = kind.FlagOf(decl.LogsOnSave)
	d.Capabilities.LogLevelExplicit = kind.FlagOf(decl.LogLevelExplicit)
}

func structFields(t reflect.Type, inherited bool) []kind.Field {
	var fields []kind.Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct && et != timeType {
				fields = append(fields, structFields(et, true)...)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if f, ok := fieldOf(sf, inherited); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

func fieldOf(sf reflect.StructField, inherited bool) (kind.Field, bool) {
	name := sf.Tag.Get("db")
	if name == "-" {
		return kind.Field{}, false
	}
	if name == "" {
		name = snakeCase(sf.Name)
	}

	ft := sf.Type
	nullable := false
	if ft.Kind() == reflect.Pointer {
		nullable = true
		ft = ft.Elem()
	}

	f := kind.Field{
		Name:        name,
		Kind:        kindOf(ft),
		Null:        nullable || sf.Tag.Get("null") == "true",
		VerboseName: sf.Tag.Get("verbose"),
		HelpText:    sf.Tag.Get("help"),
		Index:       sf.Tag.Get("index") == "true",
		Unique:      sf.Tag.Get("unique") == "true",
		PrimaryKey:  sf.Tag.Get("pk") == "true",
		RelatedName: sf.Tag.Get("reverse"),
		Inherited:   inherited,
	}
	if def, ok := sf.Tag.Lookup("default"); ok {
		f.HasDefault = true
		f.Default = def
	}
	if v := sf.Tag.Get("validate"); v != "" {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.Validators = append(f.Validators, part)
			}
		}
	}
	if rel := sf.Tag.Get("related"); rel != "" {
		f.RelatedKind = rel
		f.Kind = kind.FieldForeign
		if ft.Kind() == reflect.Slice {
			f.Kind = kind.FieldMany
		}
	}
	if k := sf.Tag.Get("kind"); k != "" {
		f.Kind = kind.FieldKind(k)
	}
	return f, true
}

func kindOf(t reflect.Type) kind.FieldKind {
	switch {
	case t == timeType:
		return kind.FieldDate
	case t == rawMessageType:
		return kind.FieldJSON
	case strings.Contains(t.Name(), "Decimal"):
		return kind.FieldDecimal
	}
	switch t.Kind() {
	case reflect.String:
		return kind.FieldText
	case reflect.Bool:
		return kind.FieldBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kind.FieldInteger
	case reflect.Float32, reflect.Float64:
		return kind.FieldFloat
	case reflect.Map:
		return kind.FieldJSON
	}
	return kind.FieldOther
}

// extractMethods classifies the pointer method set. Exported methods taking
// no argument and returning one value are computed properties; methods that
// take arguments and return a value are query helpers.
func extractMethods(pt reflect.Type, d *kind.Descriptor) {
	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		name := m.Name
		switch {
		case skipMethods[name]:
			continue
		case strMethods[name]:
			d.Capabilities.HasStr = true
		case saveMethods[name]:
			d.Capabilities.HasSave = true
		case cleanMethods[name]:
			d.Capabilities.HasClean = true
		case serializerMethods[name]:
			d.Capabilities.HasSerializer = true
		}

		mt := m.Type
		in, out := mt.NumIn()-1, mt.NumOut()
		hook := strMethods[name] || saveMethods[name] || cleanMethods[name] || serializerMethods[name]
		switch {
		case hook:
			d.Methods = append(d.Methods, snakeCase(name))
		case in == 0 && out == 1:
			d.Properties = append(d.Properties, snakeCase(name))
		case in > 0 && out >= 1 && !returnsOnlyError(mt):
			d.Helpers = append(d.Helpers, snakeCase(name))
		default:
			d.Methods = append(d.Methods, snakeCase(name))
		}
	}
}

func returnsOnlyError(mt reflect.Type) bool {
	errType := reflect.TypeOf((*error)(nil)).Elem()
	return mt.NumOut() == 1 && mt.Out(0) == errType
}

// snakeCase converts a Go identifier to snake_case ("TypeRapport" ->
// "type_rapport", "ID" -> "id").
func snakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
