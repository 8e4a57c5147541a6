package entity

import "strings"

// Synopsis returns the first ≤maxLines lines of the file's leading
// heading/docstring comment block, or nil if the file has none
// (spec.md §3: FileRecord.synopsis = "first ≤N lines of extracted
// heading/docstring or null"). This is a pure, deterministic text
// heuristic — no tree-sitter grammar is required, so it runs even for
// unknown languages and degraded parses.
func Synopsis(content []byte, maxLines int) *string {
	lines := strings.Split(string(content), "\n")

	var block []string

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		text, isCommentLine, stop := commentLineText(line)
		if stop {
			break
		}

		if !isCommentLine {
			if len(block) > 0 {
				break
			}

			continue
		}

		block = append(block, text)

		if len(block) >= maxLines {
			break
		}
	}

	if len(block) == 0 {
		return nil
	}

	if len(block) > maxLines {
		block = block[:maxLines]
	}

	joined := strings.TrimSpace(strings.Join(block, "\n"))
	if joined == "" {
		return nil
	}

	return &joined
}

// commentLineText classifies one trimmed source line as part of a leading
// comment/docstring block. stop is true once a non-blank, non-comment
// line is reached, signaling the block has ended.
func commentLineText(line string) (text string, isCommentLine, stop bool) {
	switch {
	case line == "":
		return "", false, false
	case strings.HasPrefix(line, "//"):
		return strings.TrimSpace(strings.TrimPrefix(line, "//")), true, false
	case strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "#!"):
		return strings.TrimSpace(strings.TrimPrefix(line, "#")), true, false
	case strings.HasPrefix(line, `"""`), strings.HasPrefix(line, "'''"):
		trimmed := strings.TrimPrefix(strings.TrimPrefix(line, `"""`), "'''")
		trimmed = strings.TrimSuffix(strings.TrimSuffix(trimmed, `"""`), "'''")

		return trimmed, true, false
	case strings.HasPrefix(line, "/*"):
		trimmed := strings.TrimPrefix(line, "/*")
		trimmed = strings.TrimSuffix(trimmed, "*/")

		return strings.TrimSpace(trimmed), true, false
	case strings.HasPrefix(line, "*"):
		return strings.TrimSpace(strings.TrimPrefix(line, "*")), true, false
	default:
		return "", false, true
	}
}
