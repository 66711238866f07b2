package parser

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

const LanguageJava = "java"

var DefaultExtensions = []string{".java"}

// GrammarLoader maps file extensions to the Java grammar.
type GrammarLoader struct {
	java       *sitter.Language
	extensions map[string]bool
}

func NewGrammarLoader(extensions []string) *GrammarLoader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	gl := &GrammarLoader{
		java:       sitter.NewLanguage(tree_sitter_java.Language()),
		extensions: make(map[string]bool, len(extensions)),
	}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		gl.extensions[ext] = true
	}
	return gl
}

func (gl *GrammarLoader) Language() *sitter.Language {
	return gl.java
}

func (gl *GrammarLoader) IsSupportedPath(path string) bool {
	return gl.extensions[strings.ToLower(filepath.Ext(path))]
}
