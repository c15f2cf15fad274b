// Package parser walks oracle-v2's three knowledge subtrees and splits
// each markdown file into granular, addressable chunks per §4.3. ID
// stability and retrieval granularity both depend on these chunking rules
// being followed exactly.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xaxixak/oracle-v2/internal/store"
)

// Chunk is one parsed unit, pre-timestamp. Timestamps are assigned by the
// Indexer at emission time (§4.3's "observed property", preserved here).
type Chunk struct {
	ID         string
	Type       store.DocType
	Title      string
	Content    string
	SourceFile string
	Concepts   []string
}

// Parser walks a knowledge root directory containing the resonance,
// learnings, and retrospectives subtrees.
type Parser struct {
	Root string
}

// New builds a Parser rooted at root/ψ/memory.
func New(root string) *Parser {
	return &Parser{Root: filepath.Join(root, "ψ", "memory")}
}

// Parse walks the three subtrees in the order §4.4 step 3 requires
// (resonance, learnings, retrospectives) and returns every chunk.
func (p *Parser) Parse() ([]Chunk, error) {
	var chunks []Chunk

	resonance, err := p.parseResonance(filepath.Join(p.Root, "resonance"))
	if err != nil {
		return nil, fmt.Errorf("parser: resonance: %w", err)
	}
	chunks = append(chunks, resonance...)

	learnings, err := p.parseLearnings(filepath.Join(p.Root, "learnings"))
	if err != nil {
		return nil, fmt.Errorf("parser: learnings: %w", err)
	}
	chunks = append(chunks, learnings...)

	retros, err := p.parseRetrospectives(filepath.Join(p.Root, "retrospectives"))
	if err != nil {
		return nil, fmt.Errorf("parser: retrospectives: %w", err)
	}
	chunks = append(chunks, retros...)

	return chunks, nil
}

func (p *Parser) parseResonance(dir string) ([]Chunk, error) {
	files, err := markdownFiles(dir)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		stem := fileStem(path)
		rel := relSourceFile(p.Root, path)

		for idx, sec := range splitOnHeading(string(raw), "### ") {
			if sec.Body == "" {
				continue
			}
			id := fmt.Sprintf("resonance_%s_%d", stem, idx)
			content := fmt.Sprintf("%s: %s", sec.Heading, sec.Body)
			chunks = append(chunks, Chunk{
				ID:         id,
				Type:       store.TypePrinciple,
				Title:      sec.Heading,
				Content:    content,
				SourceFile: rel,
				Concepts:   ExtractConcepts(sec.Heading, sec.Body),
			})

			for bidx, bullet := range topLevelBullets(sec.Body) {
				chunks = append(chunks, Chunk{
					ID:         fmt.Sprintf("%s_sub_%d", id, bidx),
					Type:       store.TypePrinciple,
					Title:      sec.Heading,
					Content:    bullet,
					SourceFile: rel,
					Concepts:   ExtractConcepts(sec.Heading, bullet),
				})
			}
		}
	}
	return chunks, nil
}

func (p *Parser) parseLearnings(dir string) ([]Chunk, error) {
	files, err := markdownFiles(dir)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		content := string(raw)
		stem := fileStem(path)
		rel := relSourceFile(p.Root, path)
		title := frontMatterTitle(content)
		if title == "" {
			title = stem
		}

		sections := splitOnHeading(content, "## ")
		if len(sections) == 0 {
			chunks = append(chunks, Chunk{
				ID:         "learning_" + stem,
				Type:       store.TypeLearning,
				Title:      title,
				Content:    content,
				SourceFile: rel,
				Concepts:   ExtractConcepts(title, content),
			})
			continue
		}

		for idx, sec := range sections {
			chunks = append(chunks, Chunk{
				ID:         fmt.Sprintf("learning_%s_%d", stem, idx),
				Type:       store.TypeLearning,
				Title:      firstNonEmpty(sec.Heading, title),
				Content:    sec.Body,
				SourceFile: rel,
				Concepts:   ExtractConcepts(sec.Heading, sec.Body),
			})
		}
	}
	return chunks, nil
}

const retroMinBodyChars = 50

func (p *Parser) parseRetrospectives(dir string) ([]Chunk, error) {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var chunks []Chunk
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		stem := fileStem(path)
		rel := relSourceFile(p.Root, path)

		for idx, sec := range splitOnHeading(string(raw), "## ") {
			if len(sec.Body) < retroMinBodyChars {
				continue
			}
			chunks = append(chunks, Chunk{
				ID:         fmt.Sprintf("retro_%s_%d", stem, idx),
				Type:       store.TypeRetro,
				Title:      sec.Heading,
				Content:    sec.Body,
				SourceFile: rel,
				Concepts:   ExtractConcepts(sec.Heading, sec.Body),
			})
		}
	}
	return chunks, nil
}

func markdownFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func relSourceFile(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
