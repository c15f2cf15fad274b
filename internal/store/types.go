package store

import "time"

// DocType enumerates the four document kinds the corpus holds.
type DocType string

const (
	TypePrinciple DocType = "principle"
	TypeLearning  DocType = "learning"
	TypePattern   DocType = "pattern"
	TypeRetro     DocType = "retro"
	TypeAll       DocType = "all"
)

// Provenance records who or what produced a Document.
type Provenance struct {
	Origin    string // mother, arthur, volt, human, or "" (null)
	Project   string
	CreatedBy string
}

// Document is the indexed unit: §3.1.
type Document struct {
	ID         string
	Type       DocType
	Title      string
	Content    string
	SourceFile string
	Concepts   []string
	Project    string

	CreatedAt time.Time
	UpdatedAt time.Time
	IndexedAt time.Time

	SupersededBy     string
	SupersededAt     *time.Time
	SupersededReason string

	Origin    string
	CreatedBy string
}

// Project is a partition tag on documents and telemetry rows: §3.1.
type Project struct {
	Slug        string
	Name        string
	Color       string
	Description string
	GhqPath     string
}

// IndexingStatus is the singleton job-progress row: §3.1.
type IndexingStatus struct {
	IsIndexing      bool
	ProgressCurrent int
	ProgressTotal   int
	StartedAt       *time.Time
	CompletedAt     *time.Time
	Error           string
}
