// Package models defines the domain types shared by the migration steps.
package models

import "time"

// NoteExtensions lists the file extensions treated as notes.
var NoteExtensions = []string{".md", ".markdown"}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"` // relative to the vault root
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteResult describes what the relocator did to one note.
type NoteResult struct {
	Path      string
	Refs      int      // store references found
	Moved     []string // decoded names moved into the local folder
	InPlace   []string // decoded names already in the local folder
	Missing   []string // decoded names absent from the store
	Failed    []string // decoded names whose move failed
	Rewritten bool
}

// RelocateStats aggregates NoteResults over a run.
type RelocateStats struct {
	FilesScanned   int
	FilesModified  int
	ResourcesMoved int
	Missing        int
	MoveFailures   int
	NoteErrors     int
}

// Add folds a single note result into the totals.
func (s *RelocateStats) Add(r NoteResult) {
	s.FilesScanned++
	if r.Rewritten {
		s.FilesModified++
	}
	s.ResourcesMoved += len(r.Moved)
	s.Missing += len(r.Missing)
	s.MoveFailures += len(r.Failed)
}

// FrontMatterStats aggregates front-matter rewriter activity over a run.
type FrontMatterStats struct {
	FilesScanned  int
	FilesModified int
	NoteErrors    int
	Lookups       LookupStats
}

// LookupStats counts place-name resolutions.
type LookupStats struct {
	Attempted int // network calls made
	Cached    int // answered from the location cache
	Failed    int // coordinates that yielded no place name
}

// TidyStats counts the name trimming and directory pruning steps.
type TidyStats struct {
	Renamed int
	Pruned  int
}

// Summary is the end-of-run report.
type Summary struct {
	Relocate    RelocateStats
	Tidy        TidyStats
	FrontMatter FrontMatterStats
}
