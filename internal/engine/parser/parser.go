package parser

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codesense/internal/core/errors"
	"codesense/internal/engine/scope"
	"codesense/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Parser turns Java source files into scope trees.
type Parser struct {
	loader         *GrammarLoader
	pool           *ParserPool
	logger         *slog.Logger
	testFileSuffix []string
}

func NewParser(loader *GrammarLoader, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		loader:         loader,
		pool:           NewParserPool(loader.Language()),
		logger:         logger,
		testFileSuffix: []string{"Test.java", "Tests.java", "IT.java"},
	}
}

func (p *Parser) IsSupportedPath(path string) bool {
	return p.loader.IsSupportedPath(path)
}

// IsTestFile reports whether path names a test class by convention.
func (p *Parser) IsTestFile(path string) bool {
	base := filepath.Base(path)
	for _, suffix := range p.testFileSuffix {
		if strings.HasSuffix(base, suffix) && base != suffix {
			return true
		}
	}
	return false
}

// ParseFile reads path from disk and analyzes it.
func (p *Parser) ParseFile(ctx context.Context, path string) (*scope.File, error) {
	if !p.IsSupportedPath(path) {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported file type"), errors.CtxPath, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "source file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeSessionFailure, "read source file"), errors.CtxPath, path)
	}
	return p.Parse(ctx, path, content)
}

// Parse builds a fresh File for content. Syntax errors do not fail the
// analysis; they are reported in File.Problems.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*scope.File, error) {
	_, span := observability.Tracer.Start(ctx, "parser.Parse")
	defer span.End()
	span.SetAttributes(attribute.String("path", path), attribute.Int("bytes", len(content)))

	start := time.Now()
	sp := p.pool.Get()
	defer p.pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		span.RecordError(errors.New(errors.CodeInternal, "parse failed"))
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	file := &scope.File{
		Path: path,
		Tree: scope.NewTree(p.logger),
	}
	ctxExtract := &ExtractionContext{
		Source:   content,
		File:     file,
		Tree:     file.Tree,
		Resolver: NewTypeResolver(),
	}
	newJavaBuilder().Build(ctxExtract, tree.RootNode())
	file.AnalyzedAt = time.Now()

	elapsed := time.Since(start)
	observability.AnalysisDuration.WithLabelValues(LanguageJava).Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Int("scopes", file.Tree.Len()), attribute.Int("problems", len(file.Problems)))
	p.logger.Debug("analyzed file",
		"path", path,
		"scopes", file.Tree.Len(),
		"problems", len(file.Problems),
		"duration", elapsed)
	return file, nil
}
