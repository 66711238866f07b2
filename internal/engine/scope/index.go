package scope

import (
	"sort"
	"sync"
	"time"
)

// Problem is a syntax error found while building the tree.
type Problem struct {
	Range   Range
	Message string
}

type Import struct {
	Name     string
	Static   bool
	Wildcard bool
	Range    Range
}

// File is the analysis result of one source file. A re-analysis replaces the
// whole value; nothing in it is mutated across passes.
type File struct {
	Path       string
	Package    string
	Imports    []Import
	Tree       *Tree
	Problems   []Problem
	AnalyzedAt time.Time

	// UnimportedTypes lists referenced simple type names with no import or
	// local declaration, sorted.
	UnimportedTypes []string
}

func (f *File) InnerScope(line int) *Scope {
	if f == nil || f.Tree == nil {
		return nil
	}
	return f.Tree.InnerScope(line)
}

// Index holds the latest File per path. Safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	files map[string]*File
}

func NewIndex() *Index {
	return &Index{files: make(map[string]*File)}
}

func (i *Index) Put(f *File) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.files[f.Path] = f
}

func (i *Index) Get(path string) (*File, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	f, ok := i.files[path]
	return f, ok
}

// Remove drops the given paths and returns how many were present.
func (i *Index) Remove(paths ...string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := 0
	for _, p := range paths {
		if _, ok := i.files[p]; ok {
			delete(i.files, p)
			n++
		}
	}
	return n
}

func (i *Index) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.files = make(map[string]*File)
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.files)
}

func (i *Index) Paths() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]string, 0, len(i.files))
	for p := range i.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
