package commands

import (
	"cmp"
	"slices"

	"golang.org/x/text/cases"

	"github.com/temirov/tree/internal/types"
)

// SortChildren orders siblings in place. Name order compares case-folded names and breaks ties on
// the raw name. Kind order puts directories before files before symbolic links.
// Every comparator ends in a raw name comparison, so the order is total. An empty mode keeps
// directory listing order.
func SortChildren(children []*types.TreeNode, mode string, reverse bool, directoriesFirst bool) {
	compare := comparatorFor(mode, cases.Fold())
	if compare == nil {
		if reverse {
			slices.Reverse(children)
		}
		if directoriesFirst {
			slices.SortStableFunc(children, func(left *types.TreeNode, right *types.TreeNode) int {
				return cmp.Compare(directoryRank(left), directoryRank(right))
			})
		}
		return
	}
	ordered := compare
	if reverse {
		ordered = func(left *types.TreeNode, right *types.TreeNode) int { return -compare(left, right) }
	}
	if directoriesFirst {
		inner := ordered
		ordered = func(left *types.TreeNode, right *types.TreeNode) int {
			if byDirectory := cmp.Compare(directoryRank(left), directoryRank(right)); byDirectory != 0 {
				return byDirectory
			}
			return inner(left, right)
		}
	}
	slices.SortFunc(children, ordered)
}

func comparatorFor(mode string, folder cases.Caser) func(*types.TreeNode, *types.TreeNode) int {
	compareNames := func(left *types.TreeNode, right *types.TreeNode) int {
		if folded := cmp.Compare(folder.String(left.Entry.Name), folder.String(right.Entry.Name)); folded != 0 {
			return folded
		}
		return cmp.Compare(left.Entry.Name, right.Entry.Name)
	}
	switch mode {
	case types.SortName:
		return compareNames
	case types.SortKind:
		return func(left *types.TreeNode, right *types.TreeNode) int {
			if byKind := cmp.Compare(kindRank(left.Entry.Kind), kindRank(right.Entry.Kind)); byKind != 0 {
				return byKind
			}
			return compareNames(left, right)
		}
	case types.SortSize:
		return func(left *types.TreeNode, right *types.TreeNode) int {
			if bySize := cmp.Compare(right.Entry.SizeBytes, left.Entry.SizeBytes); bySize != 0 {
				return bySize
			}
			return compareNames(left, right)
		}
	default:
		return nil
	}
}

func kindRank(kind types.Kind) int {
	switch kind {
	case types.KindDirectory:
		return 0
	case types.KindSymlink:
		return 2
	default:
		return 1
	}
}

func directoryRank(node *types.TreeNode) int {
	if node.Entry.IsDirectory() {
		return 0
	}
	return 1
}
