package entity

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

var jsTestFuncNames = map[string]bool{
	"test": true, "it": true, "describe": true,
}

// extractJavaScript walks a JavaScript/JSX tree-sitter tree.
func extractJavaScript(root sitter.Node, content []byte, isTestFile bool) []Event {
	var events []Event

	for _, child := range namedChildren(root) {
		events = append(events, extractJavaScriptNode(child, content, isTestFile)...)
	}

	return events
}

func extractJavaScriptNode(n sitter.Node, content []byte, isTestFile bool) []Event {
	switch n.Type() {
	case "import_statement":
		return extractJavaScriptImport(n, content)
	case "function_declaration":
		name := ""
		if ident := n.ChildByFieldName("name"); !ident.IsNull() {
			name = nodeText(content, ident)
		}

		return []Event{{Kind: FunctionDeclared, QualifiedName: name, Line: nodeLine(n)}}
	case "class_declaration":
		name := ""
		if ident := n.ChildByFieldName("name"); !ident.IsNull() {
			name = nodeText(content, ident)
		}

		return []Event{{Kind: ClassDeclared, QualifiedName: name, Line: nodeLine(n)}}
	case "expression_statement":
		return extractJavaScriptCallExpr(n, content, isTestFile)
	default:
		return nil
	}
}

func extractJavaScriptImport(n sitter.Node, content []byte) []Event {
	src, ok := findChildByType(n, "string")
	if !ok {
		return nil
	}

	target := strings.Trim(nodeText(content, src), `"'`)

	return []Event{{Kind: ImportObserved, Target: target, Line: nodeLine(n)}}
}

// extractJavaScriptCallExpr recognizes test()/it()/describe("name", ...)
// top-level call expressions as TestDeclared, the common shape emitted by
// Jest/Mocha-style test files.
func extractJavaScriptCallExpr(n sitter.Node, content []byte, isTestFile bool) []Event {
	if !isTestFile {
		return nil
	}

	call, ok := findChildByType(n, "call_expression")
	if !ok {
		return nil
	}

	fn := call.ChildByFieldName("function")
	if fn.IsNull() || !jsTestFuncNames[nodeText(content, fn)] {
		return nil
	}

	args := call.ChildByFieldName("arguments")
	if args.IsNull() {
		return []Event{{Kind: TestDeclared, Line: nodeLine(n)}}
	}

	name := ""

	if first, ok := findChildByType(args, "string"); ok {
		name = strings.Trim(nodeText(content, first), `"'`)
	}

	return []Event{{Kind: TestDeclared, QualifiedName: name, Line: nodeLine(n)}}
}
