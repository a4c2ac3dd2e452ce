package extractor

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	Extract(root *sitter.Node, sourceCode []byte, filepath string) *FileUnits
}

// Extractor orchestrates the extraction process using language-specific extractors.
// It holds no parser state, so one Extractor may serve concurrent callers.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "java":
		langExt = &JavaExtractor{}
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return &Extractor{langExtractor: langExt, langName: lang}, nil
}

// Language returns the language the extractor was created for.
func (e *Extractor) Language() string {
	return e.langName
}

// ExtractFromFile parses a single source file and extracts its declarations.
func (e *Extractor) ExtractFromFile(filepath string) (*FileUnits, error) {
	sourceCode, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filepath, err)
	}
	return e.ExtractSource(context.Background(), filepath, sourceCode)
}

// ExtractSource parses sourceCode as if it were read from filepath.
func (e *Extractor) ExtractSource(ctx context.Context, filepath string, sourceCode []byte) (*FileUnits, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(e.langExtractor.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filepath, err)
	}

	fu := e.langExtractor.Extract(tree.RootNode(), sourceCode, filepath)
	for _, u := range fu.Units {
		u.Language = e.langName
	}
	return fu, nil
}
