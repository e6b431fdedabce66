package rules

import (
	"fmt"
	"strings"

	"github.com/dshills/modelcritic/internal/kind"
	"github.com/dshills/modelcritic/internal/profile"
)

// Rule IDs, in application order.
const (
	RuleStructure   = "structure"
	RuleFields      = "fields"
	RuleIntegrity   = "integrity"
	RuleBusiness    = "business"
	RuleAPI         = "api"
	RuleIndexes     = "indexes"
	RuleLogging     = "logging"
	RuleConstants   = "constants"
	RuleSignals     = "signals"
	RuleStates      = "states"
	RuleSpecialized = "specialized"
)

// LifecycleFields are the bookkeeping fields every persisted kind carries.
var LifecycleFields = []string{"created_at", "updated_at", "created_by", "updated_by"}

// SerializerNames are the accepted names of a mapping-producing method.
var SerializerNames = []string{
	"to_dict", "to_serializable_dict", "serialize", "as_dict", "to_json", "to_map",
}

// GenericRules returns the rules applied to every kind, in order.
func GenericRules() []Rule {
	return []Rule{
		{ID: RuleStructure, Check: checkStructure},
		{ID: RuleFields, Check: checkFields},
		{ID: RuleIntegrity, Check: checkIntegrity},
		{ID: RuleBusiness, Check: checkBusiness},
		{ID: RuleAPI, Check: checkAPI},
		{ID: RuleIndexes, Check: checkIndexes},
		{ID: RuleLogging, Check: checkLogging},
		{ID: RuleConstants, Check: checkConstants},
		{ID: RuleSignals, Check: checkSignals},
		{ID: RuleStates, Check: checkStates},
	}
}

func checkStructure(d *kind.Descriptor, _ Options, acc *Accumulator) {
	var missing []string
	for _, name := range LifecycleFields {
		if !d.HasField(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		acc.Critical(
			fmt.Sprintf("missing lifecycle fields: %s", strings.Join(missing, ", ")),
			"inherit from the shared base model that carries created/updated timestamps and authors",
		)
	}
	if d.Meta.VerboseName == "" {
		acc.Warning("no verbose name declared", "set Meta.verbose_name")
	}
	if len(d.Meta.Ordering) == 0 {
		acc.Warning("no default ordering declared", "set Meta.ordering, e.g. [\"-created_at\"]")
	}
	if !d.Capabilities.HasStr {
		acc.Warning("no custom string representation", "implement __str__ / String()")
	}
	if !d.Capabilities.HasSave {
		acc.Warning("persistence hook save() is not customized", "override save() to validate, log and stamp authors")
	}
}

func checkFields(d *kind.Descriptor, _ Options, acc *Accumulator) {
	for _, f := range d.Fields {
		if f.IsRelation() && f.Kind != kind.FieldGeneric {
			if f.Inherited && (f.Name == "created_by" || f.Name == "updated_by") {
				continue
			}
			switch {
			case f.RelatedName == "":
				acc.Warning(fmt.Sprintf("relation %s declares no related_name", f.Name),
					fmt.Sprintf("add related_name to %s", f.Name))
			case isTemplatedRelatedName(f.RelatedName):
				acc.Warning(fmt.Sprintf("relation %s uses placeholder related_name %q", f.Name, f.RelatedName),
					"use an explicit, readable reverse accessor")
			}
			if f.VerboseName == "" {
				acc.Warning(fmt.Sprintf("relation %s has no verbose_name", f.Name), "")
			}
		}
		if f.Kind.IsNumeric() && !f.PrimaryKey && f.Name != "id" && !f.HasDefault && !f.Null {
			acc.Warning(
				fmt.Sprintf("numeric field %s has neither a default nor null=True", f.Name),
				fmt.Sprintf("give %s a default value or allow null", f.Name),
			)
		}
	}
}

func isTemplatedRelatedName(name string) bool {
	return name == "+" || strings.HasSuffix(name, "+") || strings.Contains(name, "%(")
}

func checkIntegrity(d *kind.Descriptor, _ Options, acc *Accumulator) {
	caps := d.Capabilities
	if !caps.HasClean {
		acc.Warning("no validation hook (clean/Validate)", "implement clean() with field-level errors")
	}

	fullClean, atomic := caps.FullCleanOnSave, caps.AtomicSave
	if !caps.HasSave {
		fullClean, atomic = kind.No, kind.No
	}

	switch fullClean {
	case kind.No:
		acc.Info("save() does not run full_clean() before persisting", "call self.full_clean() at the top of save()")
	case kind.Unknown:
		acc.Info("could not verify that save() runs full_clean()", "")
	}

	switch atomic {
	case kind.No:
		if isAuditTrail(d) {
			acc.Critical("audit-trail kind saves without an atomic transaction",
				"wrap save() in transaction.atomic() so history never partially commits")
		} else {
			acc.Info("save() does not wrap its mutations in an atomic transaction", "use transaction.atomic()")
		}
	case kind.Unknown:
		acc.Info("could not verify that save() runs inside an atomic transaction", "")
	}
}

// isAuditTrail prefers the declared trait; the name pattern is kept for kinds
// whose extraction cannot carry traits.
func isAuditTrail(d *kind.Descriptor) bool {
	return d.Traits.AuditTrail ||
		strings.Contains(d.Name, "Historique") ||
		strings.Contains(d.Name, "History")
}

func checkBusiness(d *kind.Descriptor, _ Options, acc *Accumulator) {
	if len(d.Properties) == 0 {
		acc.Info("exposes no computed property", "")
	}
	if len(d.Helpers) == 0 {
		acc.Info("exposes no query helper method", "")
	}
}

func checkAPI(d *kind.Descriptor, _ Options, acc *Accumulator) {
	if d.Capabilities.HasSerializer {
		return
	}
	for _, name := range SerializerNames {
		if d.HasMethod(name) {
			return
		}
	}
	acc.Warning("no serialization method", fmt.Sprintf("add one of: %s", strings.Join(SerializerNames, ", ")))
}

func checkIndexes(d *kind.Descriptor, _ Options, acc *Accumulator) {
	if !d.HasIndex() {
		acc.Warning("no secondary index declared", "add db_index=True or Meta.indexes on filtered columns")
	}
	if len(d.Meta.Managers) == 0 {
		acc.Info("uses only the default manager", "")
	}
}

func checkLogging(d *kind.Descriptor, _ Options, acc *Accumulator) {
	if !d.Capabilities.HasSave {
		return
	}
	logs, explicit := d.Capabilities.LogsOnSave, d.Capabilities.LogLevelExplicit
	switch logs {
	case kind.No:
		acc.Warning("save() does not log", "log creations and updates with logger.info")
	case kind.Unknown:
		acc.Info("could not verify logging in save()", "")
	case kind.Yes:
		if explicit == kind.No {
			acc.Info("save() logs without an explicit level", "use logger.info/warning/error instead of a bare log call")
		}
	}
}

func checkConstants(d *kind.Descriptor, _ Options, acc *Accumulator) {
	required, disputed := profile.Constants(d.Name)
	var missing, missingDisputed []string
	for _, c := range required {
		if !d.HasConstant(c) {
			missing = append(missing, c)
		}
	}
	for _, c := range disputed {
		if !d.HasConstant(c) {
			missingDisputed = append(missingDisputed, c)
		}
	}
	if len(missing) > 0 {
		acc.Critical(fmt.Sprintf("missing constants: %s", strings.Join(missing, ", ")), "declare them at class level")
	}
	if len(missingDisputed) > 0 {
		acc.Info(fmt.Sprintf("constants expected by only one contract variant are absent: %s (pending clarification)",
			strings.Join(missingDisputed, ", ")), "")
	}
}

func checkSignals(d *kind.Descriptor, _ Options, acc *Accumulator) {
	if len(d.Signals) == 0 {
		acc.Warning(fmt.Sprintf("namespace %s wires no pre/post save or delete signal", d.Namespace),
			"register a receiver in the namespace's signals module")
	}
}

func checkStates(d *kind.Descriptor, _ Options, acc *Accumulator) {
	for _, m := range profile.StateMethods(d.Name) {
		if !d.HasMethod(m) {
			acc.Warning(fmt.Sprintf("missing state method %s", m), "")
		}
	}
}
