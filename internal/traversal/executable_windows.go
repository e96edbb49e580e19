//go:build windows

package traversal

import (
	"os"

	"github.com/temirov/tree/internal/types"
)

// executableState is not implemented on Windows: permission bits carry no executable meaning there.
func executableState(os.FileMode) types.ExecutableState {
	return types.ExecutableUnknown
}
