package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/temirov/tree/internal/filter"
	"github.com/temirov/tree/internal/traversal"
	"github.com/temirov/tree/internal/utils"
)

type recordingClipboard struct {
	text   string
	copies int
}

func (clipboard *recordingClipboard) Copy(text string) error {
	clipboard.text = text
	clipboard.copies++
	return nil
}

func writeFixture(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, file := range files {
		fullPath := filepath.Join(root, file)
		if strings.HasSuffix(file, "/") {
			if err := os.MkdirAll(fullPath, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", file, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", file, err)
		}
		if err := os.WriteFile(fullPath, []byte(file), 0o644); err != nil {
			t.Fatalf("write %s: %v", file, err)
		}
	}
}

// prepareWorkspace isolates configuration lookups and moves into a fresh directory.
func prepareWorkspace(t *testing.T, files ...string) string {
	t.Helper()
	homeDirectory := t.TempDir()
	t.Setenv("HOME", homeDirectory)
	t.Setenv("USERPROFILE", homeDirectory)
	root := t.TempDir()
	writeFixture(t, root, files...)
	previousDirectory, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatalf("chdir %s: %v", root, err)
	}
	t.Setenv("PWD", root)
	t.Cleanup(func() {
		if err := os.Chdir(previousDirectory); err != nil {
			t.Fatalf("chdir %s: %v", previousDirectory, err)
		}
	})
	return root
}

func runCommand(t *testing.T, dependencies Dependencies, arguments ...string) (string, error) {
	t.Helper()
	command := NewRootCommand(dependencies)
	var stdout bytes.Buffer
	command.SetOut(&stdout)
	command.SetErr(&bytes.Buffer{})
	if arguments == nil {
		arguments = []string{}
	}
	command.SetArgs(normalizeBooleanFlagArguments(command, arguments))
	executionError := command.Execute()
	return stdout.String(), executionError
}

func TestTreeCommandOutput(t *testing.T) {
	testCases := []struct {
		name      string
		files     []string
		arguments []string
		expected  string
	}{
		{
			name:     "hidden files omitted by default",
			files:    []string{".env", "a.txt"},
			expected: ".\n└── a.txt\n\n0 directories, 1 files\n",
		},
		{
			name:      "all shows hidden files",
			files:     []string{".env", "a.txt"},
			arguments: []string{"-a"},
			expected:  ".\n├── .env\n└── a.txt\n\n0 directories, 2 files\n",
		},
		{
			name:      "include pattern prunes by default",
			files:     []string{"Cargo.toml", "docs/guide.md", "src/main.rs"},
			arguments: []string{"-P", "*.rs"},
			expected:  ".\n└── src\n    └── main.rs\n\n1 directories, 1 files\n",
		},
		{
			name:      "include pattern with pruning disabled",
			files:     []string{"docs/guide.md", "src/main.rs"},
			arguments: []string{"-P", "*.rs", "--prune=false"},
			expected:  ".\n├── docs\n└── src\n    └── main.rs\n\n2 directories, 1 files\n",
		},
		{
			name:      "empty directory pruned on request",
			files:     []string{"dir1/", "file.txt"},
			arguments: []string{"--prune"},
			expected:  ".\n└── file.txt\n\n0 directories, 1 files\n",
		},
		{
			name:      "level limits depth",
			files:     []string{"a/b/c.txt", "d.txt"},
			arguments: []string{"-L", "1"},
			expected:  ".\n├── a\n└── d.txt\n\n1 directories, 1 files\n",
		},
		{
			name:      "level zero lists the root only",
			files:     []string{"a/b/c.txt", "top.txt"},
			arguments: []string{"-L", "0", "-N"},
			expected:  ".\n\n0 directories, 0 files\n",
		},
		{
			name:     "gitignore patterns exclude entries",
			files:    []string{".gitignore", "build/out.bin", "main.go"},
			expected: ".\n└── main.go\n\n0 directories, 1 files\n",
		},
		{
			name:      "gitignore disabled",
			files:     []string{".gitignore", "build/out.bin", "main.go"},
			arguments: []string{"--no-gitignore"},
			expected:  ".\n├── build\n│   └── out.bin\n└── main.go\n\n1 directories, 2 files\n",
		},
		{
			name:      "exclude alternatives",
			files:     []string{"a.log", "b.tmp", "c.go"},
			arguments: []string{"-E", "*.log|*.tmp"},
			expected:  ".\n└── c.go\n\n0 directories, 1 files\n",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			root := prepareWorkspace(t, testCase.files...)
			if utils.ContainsString(testCase.files, ".gitignore") {
				if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("build/\n"), 0o644); err != nil {
					t.Fatalf("write .gitignore: %v", err)
				}
			}
			outputText, err := runCommand(t, Dependencies{}, testCase.arguments...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outputText != testCase.expected {
				t.Fatalf("expected:\n%s\ngot:\n%s", testCase.expected, outputText)
			}
		})
	}
}

func TestTreeCommandSkipsInvalidIgnoreLines(t *testing.T) {
	root := prepareWorkspace(t, "build/out.bin", "main.go")
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("[abc\nbuild/\n"), 0o644); err != nil {
		t.Fatalf("write .gitignore: %v", err)
	}
	outputText, err := runCommand(t, Dependencies{}, "-N")
	if err != nil {
		t.Fatalf("an unparsable ignore line must not abort the run: %v", err)
	}
	expected := ".\n└── main.go\n\n0 directories, 1 files\n"
	if outputText != expected {
		t.Fatalf("expected:\n%s\ngot:\n%s", expected, outputText)
	}
	if _, err := runCommand(t, Dependencies{}, "-E", "[abc"); !errors.Is(err, filter.ErrInvalidPattern) {
		t.Fatalf("a supplied pattern must still be fatal, got %v", err)
	}
}

func TestRootHelpMentionsIgnoreFiles(t *testing.T) {
	command := NewRootCommand(Dependencies{})
	for _, fragment := range []string{".gitignore", "--" + noGitignoreFlagName, "--" + noIgnoreFlagName} {
		if !strings.Contains(command.Long, fragment) {
			t.Fatalf("expected the long help to mention %s", fragment)
		}
	}
}

func TestTreeCommandMultipleRoots(t *testing.T) {
	prepareWorkspace(t, "one/a.txt", "two/b/")
	outputText, err := runCommand(t, Dependencies{}, "one", "two", "one")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "one\n└── a.txt\n\ntwo\n└── b\n\n1 directories, 1 files\n"
	if outputText != expected {
		t.Fatalf("expected:\n%s\ngot:\n%s", expected, outputText)
	}
}

func TestTreeCommandFatalErrorsProduceNoOutput(t *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
		target    error
	}{
		{name: "missing root", arguments: []string{".", "missing"}, target: traversal.ErrRootNotFound},
		{name: "file root", arguments: []string{"a.txt"}, target: traversal.ErrRootNotFound},
		{name: "invalid pattern", arguments: []string{"-P", "[abc"}, target: filter.ErrInvalidPattern},
		{name: "unknown sort", arguments: []string{"--sort", "colour"}, target: ErrUnsupportedSortKey},
		{name: "unknown format", arguments: []string{"--format", "xml"}, target: ErrUnsupportedFormat},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			prepareWorkspace(t, "a.txt")
			outputText, err := runCommand(t, Dependencies{}, testCase.arguments...)
			if !errors.Is(err, testCase.target) {
				t.Fatalf("expected %v, got %v", testCase.target, err)
			}
			if outputText != "" {
				t.Fatalf("expected no output, got %q", outputText)
			}
		})
	}
}

func TestTreeCommandJSONFormat(t *testing.T) {
	prepareWorkspace(t, "src/main.go", "README.md")
	outputText, err := runCommand(t, Dependencies{}, "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var document []map[string]any
	if decodeError := json.Unmarshal([]byte(outputText), &document); decodeError != nil {
		t.Fatalf("invalid JSON output: %v\n%s", decodeError, outputText)
	}
	report := document[len(document)-1]
	if report["directories"] != float64(1) || report["files"] != float64(2) {
		t.Fatalf("unexpected report %v", report)
	}
}

func TestTreeCommandColor(t *testing.T) {
	prepareWorkspace(t, "src/main.go")
	colored, err := runCommand(t, Dependencies{}, "-C")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(colored, "\x1b[") {
		t.Fatalf("expected ANSI sequences with -C, got %q", colored)
	}
	plain, err := runCommand(t, Dependencies{}, "-N")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("expected no ANSI sequences with -N, got %q", plain)
	}
	detected, err := runCommand(t, Dependencies{ColorDetector: func(_ io.Writer) bool { return true }})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(detected, "\x1b[") {
		t.Fatalf("expected colour when the writer is a terminal, got %q", detected)
	}
}

func TestTreeCommandCopiesOutput(t *testing.T) {
	prepareWorkspace(t, "a.txt")
	clipboard := &recordingClipboard{}
	outputText, err := runCommand(t, Dependencies{Clipboard: clipboard}, "--copy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clipboard.copies != 1 || clipboard.text != outputText {
		t.Fatalf("expected clipboard to hold the printed output, got %q", clipboard.text)
	}
}

func TestTreeCommandConfigurationFile(t *testing.T) {
	root := prepareWorkspace(t, ".env", "a.txt")
	configuration := "tree:\n  all: true\n  paths:\n    exclude: [a.txt]\n"
	if err := os.WriteFile(filepath.Join(root, utils.LocalConfigFileName), []byte(configuration), 0o600); err != nil {
		t.Fatalf("write configuration: %v", err)
	}

	outputText, err := runCommand(t, Dependencies{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := ".\n├── .env\n└── " + utils.LocalConfigFileName + "\n\n0 directories, 2 files\n"
	if outputText != expected {
		t.Fatalf("expected:\n%s\ngot:\n%s", expected, outputText)
	}

	outputText, err = runCommand(t, Dependencies{}, "--all=false")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outputText != ".\n\n0 directories, 0 files\n" {
		t.Fatalf("explicit flag should override configuration, got:\n%s", outputText)
	}
}

func TestVersionFlag(t *testing.T) {
	prepareWorkspace(t)
	outputText, err := runCommand(t, Dependencies{}, "--version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(outputText, "tree version: ") {
		t.Fatalf("unexpected version output %q", outputText)
	}
}

func TestInitCommandWritesConfiguration(t *testing.T) {
	root := prepareWorkspace(t)
	outputText, err := runCommand(t, Dependencies{}, "init")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectedPath := filepath.Join(root, utils.LocalConfigFileName)
	if _, statError := os.Stat(expectedPath); statError != nil {
		t.Fatalf("expected configuration at %s: %v", expectedPath, statError)
	}
	if !strings.Contains(outputText, utils.LocalConfigFileName) {
		t.Fatalf("expected the written path to be reported, got %q", outputText)
	}
	if _, err := runCommand(t, Dependencies{}, "init"); err == nil {
		t.Fatalf("expected a second init without --force to fail")
	}
	if _, err := runCommand(t, Dependencies{}, "init", "--force"); err != nil {
		t.Fatalf("expected init --force to succeed: %v", err)
	}
}
