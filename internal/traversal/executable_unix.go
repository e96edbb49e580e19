//go:build !windows

package traversal

import (
	"os"

	"github.com/temirov/tree/internal/types"
)

const executablePermissionBits = 0o111

func executableState(mode os.FileMode) types.ExecutableState {
	if mode.Perm()&executablePermissionBits != 0 {
		return types.ExecutableYes
	}
	return types.ExecutableNo
}
