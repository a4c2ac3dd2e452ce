package crawler

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"archguard/internal/extractor"
)

// Crawler scans a directory for Java source files.
type Crawler struct {
	extractor *extractor.Extractor
	ignored   []string
	exclude   []string
}

// NewCrawler creates a new crawler instance. Paths containing any exclude token are skipped.
func NewCrawler(ext *extractor.Extractor, exclude ...string) *Crawler {
	var tokens []string
	for _, e := range exclude {
		if e = strings.TrimSpace(e); e != "" {
			tokens = append(tokens, e)
		}
	}
	return &Crawler{
		extractor: ext,
		ignored:   []string{".git", "build", "target", "node_modules", ".gradle", ".idea"},
		exclude:   tokens,
	}
}

// ListFiles returns the Java sources under root in lexical order.
func (c *Crawler) ListFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != root && c.skipDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".java") || c.excluded(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (c *Crawler) skipDir(name, rel string) bool {
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	// test sources are never part of the analysed code
	if rel == "src/test" || strings.HasSuffix(rel, "/src/test") {
		return true
	}
	return c.excluded(rel)
}

func (c *Crawler) excluded(rel string) bool {
	for _, tok := range c.exclude {
		if strings.Contains(rel, tok) {
			return true
		}
	}
	return false
}

// ScanProject walks the root directory and processes all relevant files.
// It uses a callback to stream one FileUnits per file, preventing large memory buildup.
func (c *Crawler) ScanProject(root string, onFile func(*extractor.FileUnits)) error {
	files, err := c.ListFiles(root)
	if err != nil {
		return err
	}
	for _, path := range files {
		fu, err := c.extractor.ExtractFromFile(path)
		if err != nil {
			// unreadable files are skipped, not fatal for the whole scan
			continue
		}
		onFile(fu)
	}
	return nil
}
