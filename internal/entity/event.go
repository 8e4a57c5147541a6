// Package entity implements scanledger's entity extractor (spec.md §4.5):
// a pure, digest-memoized function from file bytes to a list of
// EntityEvent values, backed by per-language tree-sitter grammars.
package entity

// EventKind is the closed set of entity events a file's content can
// produce.
type EventKind string

const (
	ModuleDeclared   EventKind = "module_declared"
	FunctionDeclared EventKind = "function_declared"
	ClassDeclared    EventKind = "class_declared"
	TestDeclared     EventKind = "test_declared"
	ImportObserved   EventKind = "import_observed"
	FixtureDeclared  EventKind = "fixture_declared"
)

// Event is one observation made while parsing a file. Target is only
// populated for ImportObserved, naming the imported module/package.
// QualifiedName identifies a declared module/function/class/test within
// its file, used by the graph builder to resolve containment and import
// edges.
type Event struct {
	Kind           EventKind `json:"kind"`
	QualifiedName  string    `json:"qualified_name,omitempty"`
	Target         string    `json:"target,omitempty"`
	Line           int       `json:"line,omitempty"`
}
