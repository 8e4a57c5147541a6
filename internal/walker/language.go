package walker

import (
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
)

// UnknownLanguage is returned for any extension not present in the table.
const UnknownLanguage = "unknown"

// extensionToLanguage classifies files strictly by extension, fixing the
// exact lowercase identifier scanledger uses downstream (entity
// extraction keys its tree-sitter grammar registry off these strings).
// Shaped after the teacher's own extension lookup table. Extensions not
// listed here fall back to enry.GetLanguageByExtension, the teacher's own
// dependency for language classification — deliberately the
// content-free variant, never enry.GetLanguage(name, content): scanledger's
// language field must be a pure function of the file name, so that two
// runs over the same tree with the same files always agree before a
// single byte is read (spec.md §4.2: "No content sniffing.").
var extensionToLanguage = map[string]string{
	".go":     "go",
	".py":     "python",
	".pyi":    "python",
	".js":     "javascript",
	".jsx":    "javascript",
	".mjs":    "javascript",
	".cjs":    "javascript",
	".ts":     "typescript",
	".tsx":    "typescript",
	".vue":    "vue",
	".svelte": "svelte",
	".rs":     "rust",
	".java":   "java",
	".kt":     "kotlin",
	".kts":    "kotlin",
	".scala":  "scala",
	".c":      "c",
	".h":      "c",
	".cc":     "cpp",
	".cpp":    "cpp",
	".cxx":    "cpp",
	".hpp":    "cpp",
	".cs":     "csharp",
	".rb":     "ruby",
	".php":    "php",
	".swift":  "swift",
	".m":      "objective-c",
	".sh":     "shell",
	".bash":   "shell",
	".zsh":    "shell",
	".sql":    "sql",
	".proto":  "protobuf",
	".yaml":   "yaml",
	".yml":    "yaml",
	".json":   "json",
	".toml":   "toml",
	".md":     "markdown",
	".html":   "html",
	".css":    "css",
	".scss":   "scss",
}

// ClassifyPath returns the language associated with path's extension, or
// UnknownLanguage when neither the fixed table nor enry recognizes it. No
// file content is ever read for this decision (spec.md §4.2: "No content
// sniffing.").
func ClassifyPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))

	if lang, ok := extensionToLanguage[ext]; ok {
		return lang
	}

	if lang, safe := enry.GetLanguageByExtension(path); safe && lang != "" {
		return strings.ToLower(lang)
	}

	return UnknownLanguage
}
