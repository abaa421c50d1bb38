package keytemplate

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// checksum returns the hex-encoded SHA-256 of the files matching paths, relative to the working directory.
// Paths may be doublestar patterns such as `out/**/*.csv`. Matches are hashed in alphabetical order; a single
// file yields its own checksum. Errors are logged and skipped, and no match yields an empty string.
func (m Model) checksum(paths ...string) string {
	workingDir, err := os.Getwd()
	if err != nil {
		m.logger.Errorf(err.Error())
		return ""
	}

	files := m.matchFiles(os.DirFS(workingDir), paths)
	m.logger.Debugf("Files included in checksum:")
	for _, path := range files {
		m.logger.Debugf("- %s", path)
	}

	switch len(files) {
	case 0:
		m.logger.Warnf("No files to include in the checksum")
		return ""
	case 1:
		sum, err := checksumOfFile(files[0])
		if err != nil {
			m.logger.Warnf("Error while computing checksum %s: %s", files[0], err)
			return ""
		}
		return hex.EncodeToString(sum)
	}

	final := sha256.New()
	for _, path := range files {
		sum, err := checksumOfFile(path)
		if err != nil {
			m.logger.Warnf("Error while hashing %s: %s", path, err)
			continue
		}
		final.Write(sum)
	}
	return hex.EncodeToString(final.Sum(nil))
}

func (m Model) matchFiles(fsys fs.FS, patterns []string) []string {
	seen := map[string]bool{}
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			m.logger.Warnf("Error in pattern '%s': %s", pattern, err)
			continue
		}
		if len(matches) == 0 {
			m.logger.Warnf("No match for pattern: %s", pattern)
			continue
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				files = append(files, match)
			}
		}
	}

	sort.Strings(files)
	return files
}

func checksumOfFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return nil, err
	}
	return hash.Sum(nil), nil
}
