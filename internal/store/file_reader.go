package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/gts-registry/gts/internal/config"
	"github.com/gts-registry/gts/internal/entity"
)

// ExcludeDirs lists directory names skipped during recursive ingest.
var ExcludeDirs = []string{"node_modules", "dist", "build", ".git"}

var validExtensions = map[string]bool{".json": true, ".jsonc": true, ".gts": true}

// FileReader walks one or more filesystem paths and yields the entities
// found in every JSON document beneath them.
type FileReader struct {
	paths []string
	cfg   *config.FieldConfig

	files      []string
	discovered bool

	fileIdx    int
	pending    []*entity.Entity
	pendingIdx int
}

// NewFileReader builds a reader over paths, expanding a leading "~/" the
// way a shell would. cfg may be nil to use config.Default().
func NewFileReader(paths []string, cfg *config.FieldConfig) *FileReader {
	if cfg == nil {
		cfg = config.Default()
	}

	expanded := make([]string, len(paths))
	for i, p := range paths {
		if strings.HasPrefix(p, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				p = filepath.Join(home, p[2:])
			}
		}
		expanded[i] = p
	}

	return &FileReader{paths: expanded, cfg: cfg}
}

func (r *FileReader) collectFiles() {
	seen := make(map[string]bool)
	var collected []string

	for _, path := range r.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			continue
		}

		if !info.IsDir() {
			addFile(abs, seen, &collected)
			continue
		}

		_ = filepath.Walk(abs, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if fi.IsDir() {
				for _, ex := range ExcludeDirs {
					if fi.Name() == ex {
						return filepath.SkipDir
					}
				}
				return nil
			}
			addFile(p, seen, &collected)
			return nil
		})
	}

	r.files = collected
}

func addFile(path string, seen map[string]bool, collected *[]string) {
	ext := strings.ToLower(filepath.Ext(path))
	if !validExtensions[ext] {
		return
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		real = path
	}
	if !seen[real] {
		seen[real] = true
		*collected = append(*collected, real)
	}
}

func (r *FileReader) processFile(path string) []*entity.Entity {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var content any
	if err := json.Unmarshal(data, &content); err != nil {
		return nil
	}

	var out []*entity.Entity
	switch v := content.(type) {
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				if e := entity.New(m, r.cfg); e.GtsID != nil {
					out = append(out, e)
				}
			}
		}
	case map[string]any:
		if e := entity.New(v, r.cfg); e.GtsID != nil {
			out = append(out, e)
		}
	}
	return out
}

// Next returns the next discovered entity, or nil once every file under
// every configured path has been exhausted.
func (r *FileReader) Next() *entity.Entity {
	if !r.discovered {
		r.collectFiles()
		r.discovered = true
	}

	if r.pendingIdx < len(r.pending) {
		e := r.pending[r.pendingIdx]
		r.pendingIdx++
		return e
	}

	for r.fileIdx < len(r.files) {
		r.pending = r.processFile(r.files[r.fileIdx])
		r.fileIdx++
		r.pendingIdx = 0
		if len(r.pending) > 0 {
			e := r.pending[r.pendingIdx]
			r.pendingIdx++
			return e
		}
	}

	return nil
}

// LoadAll drains the reader and loads every entity it yields into s,
// returning the count ingested and the first ingest error encountered (if
// any put call returned an error).
func LoadAll(s *Store, r *FileReader) (int, error) {
	count := 0
	for e := r.Next(); e != nil; e = r.Next() {
		if err := s.Put(e); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
