// Package config loads the tree configuration files and ignore files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/tree/internal/utils"
)

const (
	// gitDirectoryPattern represents the pattern that matches the Git directory.
	gitDirectoryPattern = utils.GitDirectoryName + "/"
	commentPrefix       = "#"
	negationPrefix      = "!"
	directorySuffix     = "/"
	anchorPrefix        = "/"

	warningInvalidIgnorePattern = "skipping invalid ignore pattern"
)

// IgnoreOptions selects which ignore sources contribute exclude patterns.
type IgnoreOptions struct {
	UseGitignore  bool
	UseIgnoreFile bool
	IncludeGit    bool
	Logger        *zap.Logger
}

// LoadIgnoreFilePatterns reads an ignore file and returns its patterns. A missing file yields no patterns.
// Negated patterns cannot be expressed as excludes and are skipped. Lines that do not compile as globs
// are logged and skipped rather than failing the run.
func LoadIgnoreFilePatterns(fileSystem afero.Fs, ignoreFilePath string, logger *zap.Logger) ([]string, error) {
	logger = utils.LoggerOrNop(logger)
	fileHandle, openFileError := fileSystem.Open(ignoreFilePath)
	if openFileError != nil {
		if errors.Is(openFileError, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer fileHandle.Close()

	var ignorePatterns []string
	lineNumber := 0
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		lineNumber++
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentPrefix) || strings.HasPrefix(trimmedLine, negationPrefix) {
			continue
		}
		if !isValidIgnorePattern(trimmedLine) {
			logger.Warn(warningInvalidIgnorePattern,
				zap.String("file", ignoreFilePath),
				zap.Int("line", lineNumber),
				zap.String("pattern", trimmedLine),
			)
			continue
		}
		ignorePatterns = append(ignorePatterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return ignorePatterns, nil
}

// LoadCombinedIgnorePatterns aggregates patterns from .ignore and/or .gitignore files within a directory.
// The .git directory is excluded unless IncludeGit is set. The result holds ignore-file patterns only;
// patterns supplied on the command line or in configuration are compiled separately.
func LoadCombinedIgnorePatterns(fileSystem afero.Fs, absoluteDirectoryPath string, options IgnoreOptions) ([]string, error) {
	var combinedPatterns []string

	sources := []struct {
		enabled  bool
		fileName string
	}{
		{enabled: options.UseIgnoreFile, fileName: utils.IgnoreFileName},
		{enabled: options.UseGitignore, fileName: utils.GitIgnoreFileName},
	}
	for _, source := range sources {
		if !source.enabled {
			continue
		}
		patterns, loadError := LoadIgnoreFilePatterns(fileSystem, filepath.Join(absoluteDirectoryPath, source.fileName), options.Logger)
		if loadError != nil {
			return nil, fmt.Errorf("loading %s from %s: %w", source.fileName, absoluteDirectoryPath, loadError)
		}
		combinedPatterns = append(combinedPatterns, patterns...)
	}

	if !options.IncludeGit {
		combinedPatterns = append(combinedPatterns, gitDirectoryPattern)
	}

	return utils.DeduplicatePatterns(combinedPatterns), nil
}

// isValidIgnorePattern reports whether a line survives the same normalization the filter applies.
func isValidIgnorePattern(line string) bool {
	normalized := strings.TrimSuffix(utils.NormalizeSlashes(line), directorySuffix)
	normalized = strings.TrimPrefix(normalized, anchorPrefix)
	return normalized != "" && doublestar.ValidatePattern(normalized)
}
