// Package traversal walks a directory tree breadth-first and classifies the entries it finds.
package traversal

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/temirov/tree/internal/types"
	"github.com/temirov/tree/internal/utils"
)

const hiddenNamePrefix = "."

// IsHidden reports whether a name follows the dot-prefix hidden-file convention.
func IsHidden(name string) bool {
	return name != "." && name != ".." && strings.HasPrefix(name, hiddenNamePrefix)
}

// Classify maps file mode bits to an entry kind and executable state.
func Classify(info os.FileInfo) (types.Kind, types.ExecutableState) {
	if info == nil {
		return types.KindFile, types.ExecutableUnknown
	}
	mode := info.Mode()
	switch {
	case mode.IsDir():
		return types.KindDirectory, types.ExecutableNo
	case mode&os.ModeSymlink != 0:
		return types.KindSymlink, types.ExecutableNo
	case mode.IsRegular():
		state := executableState(mode)
		if state == types.ExecutableYes {
			return types.KindExecutable, state
		}
		return types.KindFile, state
	default:
		return types.KindFile, types.ExecutableNo
	}
}

// NewEntry describes one directory member. Symbolic links are resolved only when followSymlinks is set;
// a link whose target cannot be read is degraded to a plain file carrying a metadata diagnostic.
func NewEntry(fileSystem afero.Fs, path string, relativePath string, info os.FileInfo, depth int, followSymlinks bool) types.Entry {
	entry := types.Entry{
		Path:         path,
		RelativePath: relativePath,
		Name:         filepath.Base(path),
		Depth:        depth,
	}
	entry.Hidden = IsHidden(entry.Name)
	if info == nil {
		entry.Kind = types.KindFile
		entry.Executable = types.ExecutableUnknown
		entry.Diagnostic = &types.Diagnostic{Path: path, Category: types.CategoryMetadataUnavailable, Err: fs.ErrInvalid}
		return entry
	}

	entry.Kind, entry.Executable = Classify(info)
	entry.SizeBytes = info.Size()
	entry.ModTime = info.ModTime()
	if entry.Kind != types.KindSymlink {
		return entry
	}

	if reader, canRead := fileSystem.(afero.LinkReader); canRead {
		if target, readError := reader.ReadlinkIfPossible(path); readError == nil {
			entry.LinkTarget = target
		}
	}
	if !followSymlinks {
		return entry
	}
	targetInfo, statError := fileSystem.Stat(path)
	if statError != nil {
		entry.Kind = types.KindFile
		entry.Executable = types.ExecutableUnknown
		diagnostic := DiagnosticFor(path, statError)
		diagnostic.Category = types.CategoryMetadataUnavailable
		entry.Diagnostic = &diagnostic
		return entry
	}
	if targetInfo.IsDir() {
		entry.Kind = types.KindDirectory
		entry.SizeBytes = targetInfo.Size()
	}
	return entry
}

// ListChildren reads a directory once and describes each member in name order.
func ListChildren(fileSystem afero.Fs, directory types.Entry, followSymlinks bool) ([]types.Entry, error) {
	infos, readError := afero.ReadDir(fileSystem, directory.Path)
	if readError != nil {
		return nil, readError
	}
	children := make([]types.Entry, 0, len(infos))
	for _, info := range infos {
		childPath := filepath.Join(directory.Path, info.Name())
		childRelativePath := utils.JoinRelativePath(directory.RelativePath, info.Name())
		children = append(children, NewEntry(fileSystem, childPath, childRelativePath, info, directory.Depth+1, followSymlinks))
	}
	return children, nil
}

// DiagnosticFor converts a filesystem error into a categorized diagnostic.
func DiagnosticFor(path string, err error) types.Diagnostic {
	category := types.CategoryIO
	switch {
	case errors.Is(err, fs.ErrPermission):
		category = types.CategoryPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		category = types.CategoryNotFound
	}
	return types.Diagnostic{Path: path, Category: category, Err: err}
}

// RealPath resolves symbolic links for host filesystems. Other filesystems have no links to resolve.
func RealPath(fileSystem afero.Fs, path string) string {
	if _, isHost := fileSystem.(*afero.OsFs); isHost {
		if resolved, resolveError := filepath.EvalSymlinks(path); resolveError == nil {
			return resolved
		}
	}
	return filepath.Clean(path)
}
