package traversal_test

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/temirov/tree/internal/traversal"
	"github.com/temirov/tree/internal/types"
)

const testRoot = "/project"

type deniedFs struct {
	afero.Fs
	denied string
}

func (denied deniedFs) Open(name string) (afero.File, error) {
	if filepath.Clean(name) == denied.denied {
		return nil, fs.ErrPermission
	}
	return denied.Fs.Open(name)
}

func buildFixture(testingInstance *testing.T) afero.Fs {
	testingInstance.Helper()
	fileSystem := afero.NewMemMapFs()
	for _, directory := range []string{"a/y", "c"} {
		if err := fileSystem.MkdirAll(filepath.Join(testRoot, directory), 0o755); err != nil {
			testingInstance.Fatalf("mkdir %s: %v", directory, err)
		}
	}
	for _, file := range []string{"a/x.txt", "a/y/z.txt", "b.txt", ".git"} {
		if err := afero.WriteFile(fileSystem, filepath.Join(testRoot, file), []byte("content"), 0o644); err != nil {
			testingInstance.Fatalf("write %s: %v", file, err)
		}
	}
	return fileSystem
}

func drain(testingInstance *testing.T, iterator *traversal.Iterator) []types.Entry {
	testingInstance.Helper()
	var entries []types.Entry
	for {
		entry, ok := iterator.Next()
		if !ok {
			break
		}
		entries = append(entries, entry)
	}
	if err := iterator.Err(); err != nil {
		testingInstance.Fatalf("unexpected iterator error: %v", err)
	}
	return entries
}

func relativePaths(entries []types.Entry) []string {
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.RelativePath)
	}
	return paths
}

func TestIteratorBreadthFirstOrder(testingInstance *testing.T) {
	iterator := traversal.New(buildFixture(testingInstance), testRoot, traversal.Options{})
	entries := drain(testingInstance, iterator)

	expected := []string{".", ".git", "a", "b.txt", "c", "a/x.txt", "a/y", "a/y/z.txt"}
	actual := relativePaths(entries)
	if len(actual) != len(expected) {
		testingInstance.Fatalf("expected %v, got %v", expected, actual)
	}
	for index := range expected {
		if actual[index] != expected[index] {
			testingInstance.Fatalf("position %d: expected %v, got %v", index, expected, actual)
		}
	}

	seen := map[uint64]types.Entry{}
	for _, entry := range entries {
		if _, duplicate := seen[entry.ID]; duplicate {
			testingInstance.Fatalf("entry ID %d yielded twice", entry.ID)
		}
		seen[entry.ID] = entry
		if entry.IsRoot() {
			continue
		}
		parent, found := seen[entry.ParentID]
		if !found {
			testingInstance.Fatalf("%s yielded before its parent", entry.RelativePath)
		}
		if entry.Depth != parent.Depth+1 {
			testingInstance.Fatalf("%s: depth %d under parent depth %d", entry.RelativePath, entry.Depth, parent.Depth)
		}
	}
	if entries[0].Name != testRoot || entries[0].Kind != types.KindDirectory {
		testingInstance.Fatalf("unexpected root entry %+v", entries[0])
	}
	if !entries[1].Hidden {
		testingInstance.Fatalf("expected .git to be marked hidden")
	}
}

func TestIteratorMaxDepth(testingInstance *testing.T) {
	iterator := traversal.New(buildFixture(testingInstance), testRoot, traversal.Options{MaxDepth: 1, HasMaxDepth: true, RootName: "."})
	entries := drain(testingInstance, iterator)
	if len(entries) != 5 {
		testingInstance.Fatalf("expected root plus four first-level entries, got %v", relativePaths(entries))
	}
	if entries[0].Name != "." {
		testingInstance.Fatalf("expected root label override, got %q", entries[0].Name)
	}
	for _, entry := range entries[1:] {
		if entry.Depth != 1 {
			testingInstance.Fatalf("%s: unexpected depth %d", entry.RelativePath, entry.Depth)
		}
		if entry.Expandable {
			testingInstance.Fatalf("%s: should not be expandable at the depth limit", entry.RelativePath)
		}
	}
}

func TestIteratorZeroDepthYieldsRootOnly(testingInstance *testing.T) {
	testCases := []struct {
		name     string
		options  traversal.Options
		expected int
	}{
		{name: "zero depth", options: traversal.Options{MaxDepth: 0, HasMaxDepth: true}, expected: 1},
		{name: "unset depth", options: traversal.Options{}, expected: 8},
	}
	for _, testCase := range testCases {
		testingInstance.Run(testCase.name, func(t *testing.T) {
			entries := drain(t, traversal.New(buildFixture(t), testRoot, testCase.options))
			if len(entries) != testCase.expected {
				t.Fatalf("expected %d entries, got %v", testCase.expected, relativePaths(entries))
			}
			if testCase.options.HasMaxDepth && entries[0].Expandable {
				t.Fatalf("root must not be expanded at depth limit zero")
			}
		})
	}
}

func TestIteratorUnreadableDirectoryYieldsDiagnostic(testingInstance *testing.T) {
	fileSystem := deniedFs{Fs: buildFixture(testingInstance), denied: filepath.Join(testRoot, "a")}
	entries := drain(testingInstance, traversal.New(fileSystem, testRoot, traversal.Options{}))

	var directoryID uint64
	var diagnostics []types.Entry
	for _, entry := range entries {
		if entry.RelativePath == "a" && entry.Diagnostic == nil {
			directoryID = entry.ID
		}
		if entry.Diagnostic != nil {
			diagnostics = append(diagnostics, entry)
		}
		if entry.RelativePath == "a/x.txt" {
			testingInstance.Fatalf("children of an unreadable directory must not be yielded")
		}
	}
	if len(diagnostics) != 1 {
		testingInstance.Fatalf("expected one diagnostic record, got %d", len(diagnostics))
	}
	record := diagnostics[0]
	if record.ID != directoryID {
		testingInstance.Fatalf("diagnostic should carry the directory ID %d, got %d", directoryID, record.ID)
	}
	if record.Diagnostic.Category != types.CategoryPermissionDenied {
		testingInstance.Fatalf("expected permission-denied, got %s", record.Diagnostic.Category)
	}
	if !errors.Is(record.Diagnostic, fs.ErrPermission) {
		testingInstance.Fatalf("diagnostic should unwrap to fs.ErrPermission")
	}
}

func TestIteratorSkipSubtree(testingInstance *testing.T) {
	iterator := traversal.New(buildFixture(testingInstance), testRoot, traversal.Options{})
	var paths []string
	for {
		entry, ok := iterator.Next()
		if !ok {
			break
		}
		if entry.RelativePath == "a" {
			iterator.SkipSubtree(entry.ID)
		}
		paths = append(paths, entry.RelativePath)
	}
	for _, path := range paths {
		if path == "a/x.txt" || path == "a/y" || path == "a/y/z.txt" {
			testingInstance.Fatalf("skipped subtree leaked %s in %v", path, paths)
		}
	}
	if len(paths) != 5 {
		testingInstance.Fatalf("expected five entries, got %v", paths)
	}
}

func TestValidateRoot(testingInstance *testing.T) {
	fileSystem := buildFixture(testingInstance)
	testCases := []struct {
		name      string
		root      string
		expectErr bool
	}{
		{name: "directory", root: testRoot},
		{name: "missing", root: "/missing", expectErr: true},
		{name: "file", root: filepath.Join(testRoot, "b.txt"), expectErr: true},
	}
	for _, testCase := range testCases {
		testingInstance.Run(testCase.name, func(t *testing.T) {
			err := traversal.ValidateRoot(fileSystem, testCase.root)
			if testCase.expectErr && !errors.Is(err, traversal.ErrRootNotFound) {
				t.Fatalf("expected ErrRootNotFound, got %v", err)
			}
			if !testCase.expectErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestIteratorMissingRoot(testingInstance *testing.T) {
	iterator := traversal.New(afero.NewMemMapFs(), "/nowhere", traversal.Options{})
	if _, ok := iterator.Next(); ok {
		testingInstance.Fatalf("expected no entries for a missing root")
	}
	if !errors.Is(iterator.Err(), traversal.ErrRootNotFound) {
		testingInstance.Fatalf("expected ErrRootNotFound, got %v", iterator.Err())
	}
}
