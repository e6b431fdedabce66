package pysource

import (
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dshills/modelcritic/internal/kind"
)

type classInfo struct {
	name      string
	namespace string
	nsDir     string
	path      string
	doc       string
	bases     []string
	abstract  bool

	fields     []kind.Field
	methods    []string
	properties []string
	helpers    []string
	constants  []string
	meta       kind.Meta
	caps       kind.Capabilities
	// saveAnalysed is set when the class defines its own save().
	saveAnalysed bool
}

var constantPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

var helperPrefixes = []string{"get_", "is_", "has_", "count_", "est_", "find_", "list_"}

var fieldKinds = map[string]kind.FieldKind{
	"CharField":                 kind.FieldText,
	"TextField":                 kind.FieldText,
	"SlugField":                 kind.FieldText,
	"EmailField":                kind.FieldText,
	"URLField":                  kind.FieldText,
	"UUIDField":                 kind.FieldText,
	"FileField":                 kind.FieldText,
	"ImageField":                kind.FieldText,
	"GenericIPAddressField":     kind.FieldText,
	"IntegerField":              kind.FieldInteger,
	"SmallIntegerField":         kind.FieldInteger,
	"BigIntegerField":           kind.FieldInteger,
	"PositiveIntegerField":      kind.FieldInteger,
	"PositiveSmallIntegerField": kind.FieldInteger,
	"PositiveBigIntegerField":   kind.FieldInteger,
	"AutoField":                 kind.FieldInteger,
	"BigAutoField":              kind.FieldInteger,
	"DecimalField":              kind.FieldDecimal,
	"FloatField":                kind.FieldFloat,
	"BooleanField":              kind.FieldBoolean,
	"NullBooleanField":          kind.FieldBoolean,
	"DateField":                 kind.FieldDate,
	"DateTimeField":             kind.FieldDate,
	"TimeField":                 kind.FieldDate,
	"DurationField":             kind.FieldDate,
	"ForeignKey":                kind.FieldForeign,
	"OneToOneField":             kind.FieldForeign,
	"ManyToManyField":           kind.FieldMany,
	"JSONField":                 kind.FieldJSON,
	"GenericForeignKey":         kind.FieldGeneric,
	"GenericRelation":           kind.FieldGeneric,
}

var logLevels = map[string]bool{
	"debug": true, "info": true, "warning": true, "warn": true,
	"error": true, "critical": true, "exception": true,
}

var logReceivers = map[string]bool{
	"logger": true, "logging": true, "log": true, "self.logger": true, "LOGGER": true,
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// unwrapDecorated returns the definition inside a decorated_definition
// together with its decorator nodes.
func unwrapDecorated(n *sitter.Node) (*sitter.Node, []*sitter.Node) {
	if n.Kind() != "decorated_definition" {
		return n, nil
	}
	var decorators []*sitter.Node
	for _, c := range namedChildren(n) {
		if c.Kind() == "decorator" {
			decorators = append(decorators, c)
		}
	}
	return n.ChildByFieldName("definition"), decorators
}

// decoratorName returns "transaction.atomic" for both @transaction.atomic
// and @transaction.atomic(using="x").
func decoratorName(dec *sitter.Node, src []byte) string {
	children := namedChildren(dec)
	if len(children) == 0 {
		return ""
	}
	expr := children[0]
	if expr.Kind() == "call" {
		expr = expr.ChildByFieldName("function")
	}
	if expr == nil {
		return ""
	}
	return expr.Utf8Text(src)
}

func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func parseClass(n *sitter.Node, src []byte) *classInfo {
	c := &classInfo{}
	if name := n.ChildByFieldName("name"); name != nil {
		c.name = name.Utf8Text(src)
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, b := range namedChildren(supers) {
			if b.Kind() == "keyword_argument" {
				continue
			}
			c.bases = append(c.bases, b.Utf8Text(src))
		}
	}
	body := n.ChildByFieldName("body")
	for i, stmt := range namedChildren(body) {
		switch stmt.Kind() {
		case "expression_statement":
			if i == 0 {
				if s := firstString(stmt, src); s != "" {
					c.doc = scrub(strings.TrimSpace(s))
					continue
				}
			}
			c.parseAssignment(stmt, src)
		case "class_definition":
			if name := stmt.ChildByFieldName("name"); name != nil && name.Utf8Text(src) == "Meta" {
				c.parseMeta(stmt, src)
			}
		case "function_definition", "decorated_definition":
			fn, decorators := unwrapDecorated(stmt)
			if fn != nil && fn.Kind() == "function_definition" {
				c.parseFunction(fn, decorators, src)
			}
		}
	}
	return c
}

func firstString(stmt *sitter.Node, src []byte) string {
	children := namedChildren(stmt)
	if len(children) == 1 && children[0].Kind() == "string" {
		return trimQuotes(children[0].Utf8Text(src))
	}
	return ""
}

func (c *classInfo) parseAssignment(stmt *sitter.Node, src []byte) {
	for _, a := range namedChildren(stmt) {
		if a.Kind() != "assignment" {
			continue
		}
		left, right := a.ChildByFieldName("left"), a.ChildByFieldName("right")
		if left == nil || right == nil || left.Kind() != "identifier" {
			continue
		}
		name := left.Utf8Text(src)
		if constantPattern.MatchString(name) {
			c.constants = append(c.constants, name)
			continue
		}
		if right.Kind() != "call" {
			continue
		}
		fn := right.ChildByFieldName("function")
		if fn == nil {
			continue
		}
		callee := fn.Utf8Text(src)
		short := lastSegment(callee)
		switch {
		case strings.HasSuffix(short, "Manager") || strings.HasSuffix(callee, ".as_manager"):
			c.meta.Managers = append(c.meta.Managers, name)
		case strings.HasSuffix(short, "Field") || isFieldKind(short):
			c.fields = append(c.fields, parseField(name, short, right.ChildByFieldName("arguments"), src))
		}
	}
}

func isFieldKind(callee string) bool {
	_, ok := fieldKinds[callee]
	return ok
}

func parseField(name, fieldType string, args *sitter.Node, src []byte) kind.Field {
	f := kind.Field{Name: name, Kind: kind.FieldOther}
	if k, ok := fieldKinds[fieldType]; ok {
		f.Kind = k
	}
	if fieldType == "AutoField" || fieldType == "BigAutoField" {
		f.PrimaryKey = true
	}
	positional := 0
	for _, arg := range namedChildren(args) {
		if arg.Kind() != "keyword_argument" {
			if positional == 0 && fieldType != "GenericForeignKey" {
				if f.Kind.IsRelation() {
					f.RelatedKind = lastSegment(literal(arg, src))
				} else if s := literal(arg, src); s != "" && isStringish(arg, src) {
					f.VerboseName = s
				}
			}
			positional++
			continue
		}
		key := arg.ChildByFieldName("name")
		val := arg.ChildByFieldName("value")
		if key == nil || val == nil {
			continue
		}
		switch key.Utf8Text(src) {
		case "null":
			f.Null = val.Utf8Text(src) == "True"
		case "default":
			f.HasDefault = true
			f.Default = scrub(val.Utf8Text(src))
		case "verbose_name":
			f.VerboseName = literal(val, src)
		case "help_text":
			f.HelpText = scrub(literal(val, src))
		case "db_index":
			f.Index = val.Utf8Text(src) == "True"
		case "unique":
			f.Unique = val.Utf8Text(src) == "True"
		case "primary_key":
			f.PrimaryKey = val.Utf8Text(src) == "True"
		case "related_name":
			f.RelatedName = literal(val, src)
		case "to":
			f.RelatedKind = lastSegment(literal(val, src))
		case "validators":
			for _, v := range namedChildren(val) {
				f.Validators = append(f.Validators, v.Utf8Text(src))
			}
		}
	}
	return f
}

var translationFuncs = map[string]bool{
	"_": true, "gettext": true, "gettext_lazy": true, "ugettext_lazy": true, "pgettext_lazy": true,
}

func isStringish(n *sitter.Node, src []byte) bool {
	if n.Kind() == "string" {
		return true
	}
	return n.Kind() == "call" && isTranslation(n, src)
}

func isTranslation(call *sitter.Node, src []byte) bool {
	fn := call.ChildByFieldName("function")
	return fn != nil && fn.Kind() == "identifier" && translationFuncs[fn.Utf8Text(src)]
}

// literal renders a value node as plain text: quotes are stripped and
// translation wrappers like _("Nom") are unwrapped.
func literal(n *sitter.Node, src []byte) string {
	switch n.Kind() {
	case "string":
		return trimQuotes(n.Utf8Text(src))
	case "call":
		if isTranslation(n, src) {
			if args := namedChildren(n.ChildByFieldName("arguments")); len(args) > 0 {
				return literal(args[0], src)
			}
		}
	}
	return n.Utf8Text(src)
}

func (c *classInfo) parseMeta(meta *sitter.Node, src []byte) {
	for _, stmt := range namedChildren(meta.ChildByFieldName("body")) {
		if stmt.Kind() != "expression_statement" {
			continue
		}
		for _, a := range namedChildren(stmt) {
			if a.Kind() != "assignment" {
				continue
			}
			left, right := a.ChildByFieldName("left"), a.ChildByFieldName("right")
			if left == nil || right == nil {
				continue
			}
			switch left.Utf8Text(src) {
			case "abstract":
				c.abstract = right.Utf8Text(src) == "True"
			case "verbose_name":
				c.meta.VerboseName = literal(right, src)
			case "ordering":
				c.meta.Ordering = stringList(right, src)
			case "indexes":
				for _, idx := range namedChildren(right) {
					c.meta.Indexes = append(c.meta.Indexes, indexFields(idx, src))
				}
			case "index_together":
				for _, group := range namedChildren(right) {
					c.meta.Indexes = append(c.meta.Indexes, stringList(group, src))
				}
			}
		}
	}
}

// indexFields reads models.Index(fields=[...]) into its column list.
func indexFields(idx *sitter.Node, src []byte) []string {
	if idx.Kind() != "call" {
		return stringList(idx, src)
	}
	for _, arg := range namedChildren(idx.ChildByFieldName("arguments")) {
		if arg.Kind() != "keyword_argument" {
			continue
		}
		if k := arg.ChildByFieldName("name"); k != nil && k.Utf8Text(src) == "fields" {
			return stringList(arg.ChildByFieldName("value"), src)
		}
	}
	return nil
}

func stringList(n *sitter.Node, src []byte) []string {
	if n == nil {
		return nil
	}
	if n.Kind() == "string" {
		return []string{literal(n, src)}
	}
	var out []string
	for _, el := range namedChildren(n) {
		if el.Kind() == "string" {
			out = append(out, literal(el, src))
		}
	}
	return out
}

func (c *classInfo) parseFunction(fn *sitter.Node, decorators []*sitter.Node, src []byte) {
	nameNode := fn.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(src)

	for _, dec := range decorators {
		switch lastSegment(decoratorName(dec, src)) {
		case "property", "cached_property":
			c.properties = append(c.properties, name)
			return
		}
	}

	switch name {
	case "__str__":
		c.caps.HasStr = true
	case "save":
		c.caps.HasSave = true
		c.analyseSave(fn, decorators, src)
	case "clean", "full_clean", "validate":
		c.caps.HasClean = true
	case "to_dict", "to_serializable_dict", "serialize", "as_dict", "to_json", "to_map":
		c.caps.HasSerializer = true
	}

	for _, p := range helperPrefixes {
		if strings.HasPrefix(name, p) {
			c.helpers = append(c.helpers, name)
			return
		}
	}
	c.methods = append(c.methods, name)
}

// analyseSave walks the save() definition looking for a full_clean call,
// an atomic transaction and a logging call.
func (c *classInfo) analyseSave(fn *sitter.Node, decorators []*sitter.Node, src []byte) {
	c.saveAnalysed = true
	var fullClean, atomic, logs, explicit bool
	for _, dec := range decorators {
		if strings.HasSuffix(decoratorName(dec, src), "atomic") {
			atomic = true
		}
	}
	walk(fn.ChildByFieldName("body"), func(n *sitter.Node) {
		if n.Kind() != "call" {
			return
		}
		callee := n.ChildByFieldName("function")
		if callee == nil {
			return
		}
		text := callee.Utf8Text(src)
		switch {
		case text == "self.full_clean":
			fullClean = true
		case text == "transaction.atomic" || text == "atomic":
			atomic = true
		case text == "log":
			logs = true
		case callee.Kind() == "attribute":
			obj := callee.ChildByFieldName("object")
			attr := callee.ChildByFieldName("attribute")
			if obj == nil || attr == nil || !logReceivers[obj.Utf8Text(src)] {
				return
			}
			level := attr.Utf8Text(src)
			if logLevels[level] {
				logs, explicit = true, true
			} else if level == "log" {
				logs = true
			}
		}
	})
	c.caps.FullCleanOnSave = kind.FlagOf(fullClean)
	c.caps.AtomicSave = kind.FlagOf(atomic)
	c.caps.LogsOnSave = kind.FlagOf(logs)
	c.caps.LogLevelExplicit = kind.FlagOf(explicit)
}

func walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range namedChildren(n) {
		walk(c, visit)
	}
}

func indexClasses(classes []*classInfo) map[string]*classInfo {
	byName := make(map[string]*classInfo, len(classes))
	for _, c := range classes {
		if _, dup := byName[c.name]; !dup {
			byName[c.name] = c
		}
	}
	return byName
}

// isModel reports whether a base chain reaches something named *Model.
func (c *classInfo) isModel(byName map[string]*classInfo) bool {
	return c.isModelSeen(byName, map[string]bool{})
}

func (c *classInfo) isModelSeen(byName map[string]*classInfo, seen map[string]bool) bool {
	if seen[c.name] {
		return false
	}
	seen[c.name] = true
	for _, b := range c.bases {
		if strings.HasSuffix(lastSegment(b), "Model") {
			return true
		}
		if parent, ok := byName[lastSegment(b)]; ok && parent.isModelSeen(byName, seen) {
			return true
		}
	}
	return false
}

// ancestors returns the known base classes, nearest first.
func (c *classInfo) ancestors(byName map[string]*classInfo) []*classInfo {
	var out []*classInfo
	seen := map[string]bool{c.name: true}
	queue := append([]string(nil), c.bases...)
	for len(queue) > 0 {
		b := lastSegment(queue[0])
		queue = queue[1:]
		parent, ok := byName[b]
		if !ok || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, parent)
		queue = append(queue, parent.bases...)
	}
	return out
}

func (c *classInfo) descriptor(byName map[string]*classInfo) *kind.Descriptor {
	d := &kind.Descriptor{
		Name:         c.name,
		Namespace:    c.namespace,
		Source:       c.path,
		Doc:          c.doc,
		Constants:    map[string]bool{},
		Meta:         c.meta,
		Capabilities: c.caps,
	}
	saveKnown := c.saveAnalysed

	own := map[string]bool{}
	for _, f := range c.fields {
		own[f.Name] = true
	}
	ancestors := c.ancestors(byName)
	// Base fields come first, farthest ancestor first.
	for i := len(ancestors) - 1; i >= 0; i-- {
		for _, f := range ancestors[i].fields {
			if own[f.Name] {
				continue
			}
			own[f.Name] = true
			f.Inherited = true
			d.Fields = append(d.Fields, f)
		}
	}
	d.Fields = append(d.Fields, c.fields...)

	d.Methods = append(d.Methods, c.methods...)
	d.Properties = append(d.Properties, c.properties...)
	d.Helpers = append(d.Helpers, c.helpers...)
	for _, k := range c.constants {
		d.Constants[k] = true
	}
	for _, a := range ancestors {
		d.Methods = appendMissing(d.Methods, a.methods)
		d.Properties = appendMissing(d.Properties, a.properties)
		d.Helpers = appendMissing(d.Helpers, a.helpers)
		for _, k := range a.constants {
			d.Constants[k] = true
		}
		inheritCapabilities(&d.Capabilities, a.caps)
		if !saveKnown && a.saveAnalysed {
			d.Capabilities.FullCleanOnSave = a.caps.FullCleanOnSave
			d.Capabilities.AtomicSave = a.caps.AtomicSave
			d.Capabilities.LogsOnSave = a.caps.LogsOnSave
			d.Capabilities.LogLevelExplicit = a.caps.LogLevelExplicit
			saveKnown = true
		}
		if len(d.Meta.Ordering) == 0 {
			d.Meta.Ordering = a.meta.Ordering
		}
		if len(d.Meta.Managers) == 0 {
			d.Meta.Managers = a.meta.Managers
		}
	}
	if !saveKnown {
		d.Capabilities.FullCleanOnSave = kind.No
		d.Capabilities.AtomicSave = kind.No
		d.Capabilities.LogsOnSave = kind.No
		d.Capabilities.LogLevelExplicit = kind.No
	}
	return d
}

func inheritCapabilities(dst *kind.Capabilities, base kind.Capabilities) {
	dst.HasStr = dst.HasStr || base.HasStr
	dst.HasSave = dst.HasSave || base.HasSave
	dst.HasClean = dst.HasClean || base.HasClean
	dst.HasSerializer = dst.HasSerializer || base.HasSerializer
}

func appendMissing(dst, src []string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}
