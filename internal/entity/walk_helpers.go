package entity

import sitter "github.com/alexaandru/go-tree-sitter-bare"

func nodeText(content []byte, n sitter.Node) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint32(len(content)) || start > end {
		return ""
	}

	return string(content[start:end])
}

func nodeLine(n sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// namedChildren returns n's named children as a slice, for callers that
// want to range over them more than once.
func namedChildren(n sitter.Node) []sitter.Node {
	count := n.NamedChildCount()
	children := make([]sitter.Node, 0, count)

	for i := uint32(0); i < count; i++ {
		children = append(children, n.NamedChild(i))
	}

	return children
}

// findChildByType returns the first named child of n whose Type matches
// typ, or a null node if none match.
func findChildByType(n sitter.Node, typ string) (sitter.Node, bool) {
	for _, child := range namedChildren(n) {
		if child.Type() == typ {
			return child, true
		}
	}

	return sitter.Node{}, false
}
