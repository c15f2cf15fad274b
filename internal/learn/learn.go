// Package learn implements oracle_learn (§4.7): writing a new pattern to
// the learnings subtree and indexing it for keyword search immediately.
package learn

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/oraclerr"
	"github.com/xaxixak/oracle-v2/internal/store"
)

// frontMatter is the leading YAML block (--- ... ---) written atop every
// learning file.
type frontMatter struct {
	Title   string   `yaml:"title"`
	Tags    []string `yaml:"tags"`
	Created string   `yaml:"created"`
	Source  string   `yaml:"source"`
}

const (
	slugMaxChars    = 50
	previewMaxChars = 100
)

var slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
var slugWhitespace = regexp.MustCompile(`[\s-]+`)

// Input is oracle_learn's public contract.
type Input struct {
	Pattern  string
	Source   string
	Concepts []string
	Origin   string
	Project  string
	Cwd      string
}

// Output is oracle_learn's public contract.
type Output struct {
	DocumentID string
	Filename   string
}

// Service implements Learn (§4.7).
type Service struct {
	store    *store.Store
	repoRoot string
	log      *logging.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func New(st *store.Store, repoRoot string, log *logging.Logger, tracer trace.Tracer) *Service {
	return &Service{store: st, repoRoot: repoRoot, log: log, tracer: tracer, now: func() time.Time { return time.Now().UTC() }}
}

// Learn writes a new learning document to disk and indexes it for keyword
// search. The vector index is deliberately left untouched (§4.7).
func (s *Service) Learn(ctx context.Context, in Input) (Output, error) {
	ctx, span := s.tracer.Start(ctx, "learn.Learn")
	defer span.End()

	if strings.TrimSpace(in.Pattern) == "" {
		return Output{}, oraclerr.NewValidation("pattern", "pattern is required")
	}

	date := s.now().Format("2006-01-02")
	slug := computeSlug(in.Pattern)
	filename := fmt.Sprintf("%s_%s.md", date, slug)

	dir := filepath.Join(s.repoRoot, "ψ", "memory", "learnings")
	path := filepath.Join(dir, filename)

	if _, err := os.Stat(path); err == nil {
		return Output{}, oraclerr.NewConflict("File already exists")
	}

	title := firstLine(in.Pattern)
	created := s.now().Format(time.RFC3339)

	fmBytes, err := yaml.Marshal(frontMatter{Title: title, Tags: in.Concepts, Created: created, Source: in.Source})
	if err != nil {
		return Output{}, fmt.Errorf("learn: encode front matter: %w", err)
	}

	body := fmt.Sprintf("# %s\n\n%s\n\n---\n*Added via Oracle Learn*\n", title, in.Pattern)
	document := "---\n" + string(fmBytes) + "---\n\n" + body

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Output{}, fmt.Errorf("learn: create learnings dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(document), 0o644); err != nil {
		return Output{}, fmt.Errorf("learn: write file: %w", err)
	}

	id := fmt.Sprintf("learning_%s_%s", date, slug)
	now := s.now()
	concepts := strings.Join(in.Concepts, " ")

	doc := store.Document{
		ID:         id,
		Type:       store.TypeLearning,
		Title:      title,
		SourceFile: filepath.Join("learnings", filename),
		Concepts:   in.Concepts,
		Project:    in.Project,
		CreatedAt:  now,
		UpdatedAt:  now,
		IndexedAt:  now,
		Origin:     in.Origin,
		CreatedBy:  "oracle_learn",
	}
	if err := s.store.UpsertDocument(ctx, doc, document); err != nil {
		return Output{}, fmt.Errorf("learn: index document: %w", err)
	}

	preview := truncate(in.Pattern, previewMaxChars)
	if err := s.store.LogLearn(ctx, id, preview, in.Source, concepts, in.Project); err != nil {
		s.log.Telemetry("learn_log", err)
	}

	return Output{DocumentID: id, Filename: filename}, nil
}

// computeSlug derives a filesystem-safe slug from the full (possibly
// multi-line) pattern: lowercase, strip anything but [a-z0-9\s-], collapse
// runs of whitespace/hyphen (including newlines) into one hyphen, trim
// hyphens, cap at 50 chars (§4.7). Slugifying the whole pattern rather than
// just its first line keeps two patterns that share a short opening line
// but diverge afterward from colliding on date+slug.
func computeSlug(pattern string) string {
	lower := strings.ToLower(pattern)
	cleaned := slugDisallowed.ReplaceAllString(lower, "")
	collapsed := slugWhitespace.ReplaceAllString(cleaned, "-")
	trimmed := strings.Trim(collapsed, "-")
	if trimmed == "" {
		trimmed = "untitled"
	}
	if len(trimmed) > slugMaxChars {
		trimmed = strings.Trim(trimmed[:slugMaxChars], "-")
	}
	return trimmed
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
