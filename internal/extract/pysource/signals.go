package pysource

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

var knownSignals = map[string]bool{
	"pre_save":    true,
	"post_save":   true,
	"pre_delete":  true,
	"post_delete": true,
}

// findSignals returns the model signals wired in a module, either through
// @receiver(post_save, sender=...) or post_save.connect(handler, ...).
func findSignals(root *sitter.Node, src []byte) []string {
	set := map[string]bool{}
	walk(root, func(n *sitter.Node) {
		switch n.Kind() {
		case "decorator":
			children := namedChildren(n)
			if len(children) == 0 || children[0].Kind() != "call" {
				return
			}
			call := children[0]
			fn := call.ChildByFieldName("function")
			if fn == nil || lastSegment(fn.Utf8Text(src)) != "receiver" {
				return
			}
			args := namedChildren(call.ChildByFieldName("arguments"))
			if len(args) == 0 {
				return
			}
			for _, sig := range signalNames(args[0], src) {
				set[sig] = true
			}
		case "call":
			fn := n.ChildByFieldName("function")
			if fn == nil || fn.Kind() != "attribute" {
				return
			}
			attr := fn.ChildByFieldName("attribute")
			obj := fn.ChildByFieldName("object")
			if attr == nil || obj == nil || attr.Utf8Text(src) != "connect" {
				return
			}
			if sig := lastSegment(obj.Utf8Text(src)); knownSignals[sig] {
				set[sig] = true
			}
		}
	})
	out := make([]string, 0, len(set))
	for sig := range set {
		out = append(out, sig)
	}
	return sortStrings(out)
}

// signalNames accepts a single signal or a list of them, as @receiver does.
func signalNames(n *sitter.Node, src []byte) []string {
	var candidates []*sitter.Node
	switch n.Kind() {
	case "list", "tuple":
		candidates = namedChildren(n)
	default:
		candidates = []*sitter.Node{n}
	}
	var out []string
	for _, c := range candidates {
		if sig := lastSegment(c.Utf8Text(src)); knownSignals[sig] {
			out = append(out, sig)
		}
	}
	return out
}
