// Package utils contains general helper functions used across the tree tool.
package utils

import (
	"path"
	"strings"
)

// Ignore and configuration file constants used across the project.
const (
	// IgnoreFileName is the name of the project's ignore file.
	IgnoreFileName = ".ignore"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git metadata directory.
	GitDirectoryName = ".git"
	// ConfigFileName is the name of the configuration file in the global directory.
	ConfigFileName = "config.yaml"
	// LocalConfigFileName is the configuration file looked up in the working directory.
	LocalConfigFileName = ".tree.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".tree"
	// PatternAlternativeSeparator separates alternatives inside one -P/-E value.
	PatternAlternativeSeparator = "|"
)

const pathSegmentSeparator = "/"

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// ContainsString checks if a slice of strings contains a specific target string.
func ContainsString(stringSlice []string, targetString string) bool {
	for _, currentString := range stringSlice {
		if currentString == targetString {
			return true
		}
	}
	return false
}

// SplitPatternAlternatives expands "a|b" style values into separate trimmed patterns.
// Empty alternatives are dropped.
func SplitPatternAlternatives(values []string) []string {
	var patterns []string
	for _, value := range values {
		for _, alternative := range strings.Split(value, PatternAlternativeSeparator) {
			trimmed := strings.TrimSpace(alternative)
			if trimmed == "" {
				continue
			}
			patterns = append(patterns, trimmed)
		}
	}
	return DeduplicatePatterns(patterns)
}

// JoinRelativePath appends a child name to a slash separated path relative to the traversal root.
// The root itself is represented by ".".
func JoinRelativePath(parentRelativePath, childName string) string {
	if parentRelativePath == "" || parentRelativePath == "." {
		return childName
	}
	return path.Join(parentRelativePath, childName)
}

// NormalizeSlashes converts backslash separated paths to forward slashes.
func NormalizeSlashes(value string) string {
	return strings.ReplaceAll(value, "\\", pathSegmentSeparator)
}
