package entity

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// extractGo walks a Go file's tree-sitter tree, producing one
// ModuleDeclared for the package clause, one FunctionDeclared/
// TestDeclared per top-level function or method, one ClassDeclared per
// struct/interface type declaration, and one ImportObserved per import
// spec. isTestFile mirrors the walker's filename-only test classification
// (spec.md's no-content-sniffing rule extends to this decision too: a Go
// test function is only ever a TestDeclared when the file itself is named
// *_test.go).
func extractGo(root sitter.Node, content []byte, isTestFile bool) []Event {
	var events []Event

	for _, child := range namedChildren(root) {
		switch child.Type() {
		case "package_clause":
			if ident, ok := findChildByType(child, "package_identifier"); ok {
				events = append(events, Event{
					Kind:          ModuleDeclared,
					QualifiedName: nodeText(content, ident),
					Line:          nodeLine(child),
				})
			}
		case "import_declaration":
			events = append(events, extractGoImports(child, content)...)
		case "function_declaration":
			events = append(events, goFunctionEvent(child, content, isTestFile))
		case "method_declaration":
			events = append(events, goFunctionEvent(child, content, isTestFile))
		case "type_declaration":
			events = append(events, extractGoTypeDecl(child, content)...)
		}
	}

	return events
}

func goFunctionEvent(n sitter.Node, content []byte, isTestFile bool) Event {
	name := ""
	if ident := n.ChildByFieldName("name"); !ident.IsNull() {
		name = nodeText(content, ident)
	}

	kind := FunctionDeclared
	if isTestFile && strings.HasPrefix(name, "Test") {
		kind = TestDeclared
	}

	return Event{Kind: kind, QualifiedName: name, Line: nodeLine(n)}
}

func extractGoTypeDecl(n sitter.Node, content []byte) []Event {
	var events []Event

	for _, spec := range namedChildren(n) {
		if spec.Type() != "type_spec" {
			continue
		}

		name := ""
		if ident := spec.ChildByFieldName("name"); !ident.IsNull() {
			name = nodeText(content, ident)
		}

		typ := spec.ChildByFieldName("type")
		if typ.IsNull() {
			continue
		}

		if typ.Type() == "struct_type" || typ.Type() == "interface_type" {
			events = append(events, Event{Kind: ClassDeclared, QualifiedName: name, Line: nodeLine(spec)})
		}
	}

	return events
}

func extractGoImports(n sitter.Node, content []byte) []Event {
	var events []Event

	specs := namedChildren(n)
	if list, ok := findChildByType(n, "import_spec_list"); ok {
		specs = namedChildren(list)
	}

	for _, spec := range specs {
		if spec.Type() != "import_spec" {
			continue
		}

		pathNode := spec.ChildByFieldName("path")
		if pathNode.IsNull() {
			continue
		}

		target := strings.Trim(nodeText(content, pathNode), `"`)
		events = append(events, Event{Kind: ImportObserved, Target: target, Line: nodeLine(spec)})
	}

	return events
}
