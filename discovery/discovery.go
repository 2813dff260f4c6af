// Package discovery locates JUnit XML report files on disk.
package discovery

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultMaxDepth bounds the directory walk when the caller does not
// request a depth.
const DefaultMaxDepth = 5

// skippedDirs are dependency and build-output directories that never hold
// hand-written reports and tend to be huge.
var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"vendor":       true,
	"build":        true,
	"dist":         true,
	"target":       true,
	"out":          true,
	"bin":          true,
	"obj":          true,
}

// IsReportName reports whether a file name follows the usual JUnit report
// naming conventions: an .xml extension and either "junit" somewhere in
// the name or a "test-" prefix, matched case-insensitively.
func IsReportName(name string) bool {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".xml") {
		return false
	}
	return strings.Contains(lower, "junit") || strings.HasPrefix(lower, "test-")
}

// FindReports walks root up to maxDepth directory levels and returns the
// report file paths in walk order, using forward slashes. Entries directly
// under root sit at depth 1. A maxDepth of zero or less selects
// DefaultMaxDepth. Unreadable subtrees are logged and skipped.
func FindReports(root string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.New("failed to read report directory: " + err.Error())
	}
	if !info.IsDir() {
		return nil, errors.New("report root is not a directory: " + root)
	}

	reports := []string{}
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			logrus.WithError(walkErr).WithField("Path", path).Warn("Skipping unreadable path")
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(filepath.ToSlash(rel), "/") + 1
		}
		if entry.IsDir() {
			if depth == 0 {
				return nil
			}
			if skippedDirs[strings.ToLower(entry.Name())] {
				return filepath.SkipDir
			}
			if depth >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if IsReportName(entry.Name()) {
			reports = append(reports, filepath.ToSlash(path))
		}
		return nil
	})
	if err != nil {
		return nil, errors.New("failed to scan report directory: " + err.Error())
	}

	logrus.WithField("Root", root).Debugf("Located %d report file(s)", len(reports))
	return reports, nil
}
