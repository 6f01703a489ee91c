package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mis-dashboard/backend/internal/policy/domain"
)

// FileRepository reads policies from a .rego file or from every .rego file of a directory.
type FileRepository struct {
	path string
}

// NewFileRepository returns a repository reading path. An empty path yields no policies.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// EnabledPolicies reads the policy files, sorted by name.
func (r *FileRepository) EnabledPolicies(ctx context.Context) ([]*domain.Policy, error) {
	if r.path == "" {
		return nil, nil
	}
	info, err := os.Stat(r.path)
	if err != nil {
		return nil, fmt.Errorf("policy: stat %s: %w", r.path, err)
	}
	files := []string{r.path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(r.path, "*.rego"))
		if err != nil {
			return nil, fmt.Errorf("policy: list %s: %w", r.path, err)
		}
		sort.Strings(files)
	}
	out := make([]*domain.Policy, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("policy: read %s: %w", f, err)
		}
		if strings.TrimSpace(string(src)) == "" {
			continue
		}
		fi, _ := os.Stat(f)
		p := &domain.Policy{ID: filepath.Base(f), Rules: string(src), Enabled: true}
		if fi != nil {
			p.UpdatedAt = fi.ModTime().UTC()
		}
		out = append(out, p)
	}
	return out, nil
}
