package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/temirov/tree/internal/types"
)

var (
	directoryColor  = lipgloss.Color("12")
	executableColor = lipgloss.Color("9")
	symlinkColor    = lipgloss.Color("6")
)

// palette colours entry names by kind. A disabled palette returns names unchanged.
type palette struct {
	enabled    bool
	directory  lipgloss.Style
	executable lipgloss.Style
	symlink    lipgloss.Style
}

// newPalette binds styles to a renderer with a fixed ANSI profile, so colouring does not depend
// on whether the process output is a terminal. Terminal detection happens in the CLI.
func newPalette(enabled bool) palette {
	styleRenderer := lipgloss.NewRenderer(io.Discard)
	styleRenderer.SetColorProfile(termenv.ANSI)
	return palette{
		enabled:    enabled,
		directory:  styleRenderer.NewStyle().Foreground(directoryColor).Bold(true),
		executable: styleRenderer.NewStyle().Foreground(executableColor).Bold(true),
		symlink:    styleRenderer.NewStyle().Foreground(symlinkColor),
	}
}

func (colours palette) name(entry types.Entry) string {
	if !colours.enabled {
		return entry.Name
	}
	switch {
	case entry.Kind == types.KindSymlink || (entry.LinkTarget != "" && !entry.IsDirectory()):
		return colours.symlink.Render(entry.Name)
	case entry.IsDirectory():
		return colours.directory.Render(entry.Name)
	case entry.Kind == types.KindExecutable:
		return colours.executable.Render(entry.Name)
	default:
		return entry.Name
	}
}
