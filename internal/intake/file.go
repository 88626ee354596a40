package intake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"strategy-draft-gate/internal/domain"
)

// FileSource reads a single draft document from disk.
type FileSource struct {
	Path string
}

// NewFileSource creates a source for one draft file.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Fetch reads and parses the file. An unreadable path is an infrastructure
// failure; a document that fails validation is returned as malformed.
func (s *FileSource) Fetch(ctx context.Context) ([]domain.ParsedDraft, []domain.MalformedDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("read draft file %s: %w", s.Path, err)
	}

	parsed, err := ParseDraft(data)
	if err != nil {
		return nil, []domain.MalformedDraft{{Source: s.Path, Reason: err.Error()}}, nil
	}
	return []domain.ParsedDraft{parsed}, nil, nil
}

// DirSource reads every draft document from a directory, one draft per file.
type DirSource struct {
	Dir string
}

// NewDirSource creates a source over all .yaml/.yml files in dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Fetch scans the directory in lexical filename order so repeated runs see
// drafts in the same sequence. Files that cannot be parsed are recorded as
// malformed and do not stop the scan; a missing or unreadable directory does.
func (s *DirSource) Fetch(ctx context.Context) ([]domain.ParsedDraft, []domain.MalformedDraft, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read drafts directory %s: %w", s.Dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	var (
		drafts    []domain.ParsedDraft
		malformed []domain.MalformedDraft
	)
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		path := filepath.Join(s.Dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read draft file %s: %w", path, err)
		}

		parsed, err := ParseDraft(data)
		if err != nil {
			malformed = append(malformed, domain.MalformedDraft{Source: path, Reason: err.Error()})
			continue
		}
		drafts = append(drafts, parsed)
	}
	return drafts, malformed, nil
}
