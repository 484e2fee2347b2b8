// Package tidy holds the small clean-up passes run between and after the
// main migration steps: trimming trailing underscores and spaces from names,
// and pruning resource folders left empty.
package tidy

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/vaultport/internal/report"
)

// TrimNames renames every file and directory under root whose name ends in
// "_" or " " (for files, before the extension). Names made only of those
// characters are left alone. Existing targets are never overwritten; a
// numeric suffix is appended instead. Deeper entries are handled first.
func TrimNames(root string, rep report.Reporter) (int, error) {
	entries, err := collect(root)
	if err != nil {
		return 0, err
	}

	renamed := 0
	for _, e := range entries {
		newName, ok := trimmedName(e.name, e.dir)
		if !ok {
			continue
		}
		parent := filepath.Dir(e.path)
		target := uniquePath(parent, newName, e.dir)
		report.Statusf(rep, "Renaming: %s -> %s", e.path, target)
		if err := os.Rename(e.path, target); err != nil {
			report.Errorf(rep, "Error renaming %s: %v", e.path, err)
			continue
		}
		renamed++
	}
	return renamed, nil
}

// PruneEmptyResourceDirs removes every empty directory named name below
// root, deepest first, and returns the removed paths. Non-empty ones are
// kept and reported with their contents.
func PruneEmptyResourceDirs(root, name string, rep report.Reporter) ([]string, error) {
	entries, err := collect(root)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, e := range entries {
		if !e.dir || e.name != name {
			continue
		}
		contents, err := os.ReadDir(e.path)
		if err != nil {
			report.Errorf(rep, "Error checking directory %s: %v", e.path, err)
			continue
		}
		if len(contents) > 0 {
			names := make([]string, 0, len(contents))
			for _, c := range contents {
				names = append(names, c.Name())
			}
			report.Statusf(rep, "%s directory not empty, skipping: %s (%s)", name, e.path, strings.Join(names, ", "))
			continue
		}
		report.Statusf(rep, "Removing empty %s directory: %s", name, e.path)
		if err := os.Remove(e.path); err != nil {
			report.Errorf(rep, "Error removing directory %s: %v", e.path, err)
			continue
		}
		removed = append(removed, e.path)
	}
	return removed, nil
}

type entry struct {
	path  string
	name  string
	dir   bool
	depth int
}

// collect lists everything below root (root excluded), deepest first and,
// at equal depth, files before directories.
func collect(root string) ([]entry, error) {
	var out []entry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		out = append(out, entry{
			path:  p,
			name:  d.Name(),
			dir:   d.IsDir(),
			depth: strings.Count(rel, string(filepath.Separator)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tidy: walk %s: %w", root, err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].depth != out[j].depth {
			return out[i].depth > out[j].depth
		}
		return !out[i].dir && out[j].dir
	})
	return out, nil
}

func trimmedName(name string, dir bool) (string, bool) {
	base, ext := name, ""
	if !dir {
		ext = filepath.Ext(name)
		base = strings.TrimSuffix(name, ext)
	}
	if !strings.HasSuffix(base, "_") && !strings.HasSuffix(base, " ") {
		return "", false
	}
	trimmed := strings.TrimRight(base, "_ ")
	if trimmed == "" {
		return "", false
	}
	return trimmed + ext, true
}

func uniquePath(parent, name string, dir bool) string {
	candidate := filepath.Join(parent, name)
	base, ext := name, ""
	if !dir {
		ext = filepath.Ext(name)
		base = strings.TrimSuffix(name, ext)
	}
	for i := 1; exists(candidate); i++ {
		candidate = filepath.Join(parent, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
	return candidate
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}
