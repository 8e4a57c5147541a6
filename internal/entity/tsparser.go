package entity

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	golang "github.com/alexaandru/go-sitter-forest/go"
	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/python"
)

// supportedLanguages maps scanledger's walker language names to their
// tree-sitter grammar constructors, mirroring the teacher's
// languageFuncs/GetLanguage registry in pkg/uast/languages.go — narrowed
// to the three languages this extractor understands (spec.md's
// entity-extraction scope). Any other language degrades to
// ModuleDeclared only.
var supportedLanguages = map[string]func() *sitter.Language{
	"go":         func() *sitter.Language { return sitter.NewLanguage(golang.GetLanguage()) },
	"python":     func() *sitter.Language { return sitter.NewLanguage(python.GetLanguage()) },
	"javascript": func() *sitter.Language { return sitter.NewLanguage(javascript.GetLanguage()) },
}

var (
	languageCacheMu sync.Mutex
	languageCache   = map[string]*sitter.Language{}
)

func grammarFor(language string) (*sitter.Language, bool) {
	languageCacheMu.Lock()
	defer languageCacheMu.Unlock()

	if lang, ok := languageCache[language]; ok {
		return lang, true
	}

	ctor, ok := supportedLanguages[language]
	if !ok {
		return nil, false
	}

	lang := ctor()
	languageCache[language] = lang

	return lang, true
}

// parseTree parses content with language's grammar and returns its root
// node plus a close function the caller must invoke.
func parseTree(ctx context.Context, language string, content []byte) (sitter.Node, func(), error) {
	lang, ok := grammarFor(language)
	if !ok {
		return sitter.Node{}, func() {}, fmt.Errorf("no grammar registered for language %q", language)
	}

	tsParser := sitter.NewParser()
	tsParser.SetLanguage(lang)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return sitter.Node{}, func() {}, fmt.Errorf("parse %s: %w", language, err)
	}

	root := tree.RootNode()
	if root.IsNull() {
		tree.Close()

		return sitter.Node{}, func() {}, fmt.Errorf("parse %s: empty root node", language)
	}

	return root, tree.Close, nil
}
