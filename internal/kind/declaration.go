package kind

// Declaration is what a Go model states about itself through a
// ModelMeta() method. Reflection recovers fields and methods; everything
// reflection cannot see is declared here.
type Declaration struct {
	VerboseName string
	Ordering    []string
	Indexes     [][]string
	Managers    []string
	Constants   []string
	Doc         string
	Traits      Traits

	// Save behavior. A model that declares ModelMeta states these
	// explicitly; one that does not leaves them Unknown.
	FullCleanOnSave  bool
	AtomicSave       bool
	LogsOnSave       bool
	LogLevelExplicit bool
}

// Declarer is implemented by Go models that publish a Declaration.
type Declarer interface {
	ModelMeta() Declaration
}
