package entity

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// extractPython walks a Python module's tree-sitter tree. Since Python
// has no package-clause equivalent, no ModuleDeclared is emitted here;
// the file's module node is derived elsewhere (graph builder) from its
// canonical path rather than from tree content.
func extractPython(root sitter.Node, content []byte, isTestFile bool) []Event {
	var events []Event

	for _, child := range namedChildren(root) {
		events = append(events, extractPythonNode(child, content, isTestFile)...)
	}

	return events
}

func extractPythonNode(n sitter.Node, content []byte, isTestFile bool) []Event {
	switch n.Type() {
	case "import_statement", "import_from_statement":
		return extractPythonImport(n, content)
	case "function_definition":
		return []Event{pythonFunctionEvent(n, content, isTestFile, false)}
	case "decorated_definition":
		return extractPythonDecorated(n, content, isTestFile)
	case "class_definition":
		name := ""
		if ident := n.ChildByFieldName("name"); !ident.IsNull() {
			name = nodeText(content, ident)
		}

		return []Event{{Kind: ClassDeclared, QualifiedName: name, Line: nodeLine(n)}}
	default:
		return nil
	}
}

func pythonFunctionEvent(n sitter.Node, content []byte, isTestFile, isFixture bool) Event {
	name := ""
	if ident := n.ChildByFieldName("name"); !ident.IsNull() {
		name = nodeText(content, ident)
	}

	kind := FunctionDeclared

	switch {
	case isFixture:
		kind = FixtureDeclared
	case isTestFile && strings.HasPrefix(name, "test_"):
		kind = TestDeclared
	}

	return Event{Kind: kind, QualifiedName: name, Line: nodeLine(n)}
}

func extractPythonDecorated(n sitter.Node, content []byte, isTestFile bool) []Event {
	fn, ok := findChildByType(n, "function_definition")
	if !ok {
		return nil
	}

	isFixture := false

	for _, child := range namedChildren(n) {
		if child.Type() != "decorator" {
			continue
		}

		if strings.Contains(nodeText(content, child), "fixture") {
			isFixture = true
		}
	}

	return []Event{pythonFunctionEvent(fn, content, isTestFile, isFixture)}
}

func extractPythonImport(n sitter.Node, content []byte) []Event {
	var events []Event

	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "dotted_name", "aliased_import":
			events = append(events, Event{Kind: ImportObserved, Target: nodeText(content, child), Line: nodeLine(n)})
		}
	}

	if len(events) == 0 {
		events = append(events, Event{Kind: ImportObserved, Target: strings.TrimSpace(nodeText(content, n)), Line: nodeLine(n)})
	}

	return events
}
