// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/tree/internal/commands"
	"github.com/temirov/tree/internal/config"
	"github.com/temirov/tree/internal/filter"
	"github.com/temirov/tree/internal/output"
	"github.com/temirov/tree/internal/services/clipboard"
	"github.com/temirov/tree/internal/traversal"
	"github.com/temirov/tree/internal/types"
	"github.com/temirov/tree/internal/utils"
)

const (
	allFlagName         = "all"
	allFlagShorthand    = "a"
	levelFlagName       = "level"
	levelFlagShorthand  = "L"
	patternFlagName     = "pattern"
	patternShorthand    = "P"
	excludeFlagName     = "exclude"
	excludeShorthand    = "E"
	sortFlagName        = "sort"
	reverseFlagName     = "reverse"
	reverseShorthand    = "r"
	dirsFirstFlagName   = "dirsfirst"
	colorFlagName       = "color"
	colorShorthand      = "C"
	noColorFlagName     = "no-color"
	noColorShorthand    = "N"
	sizeFlagName        = "size"
	sizeShorthand       = "s"
	dateFlagName        = "date"
	dateShorthand       = "D"
	followFlagName      = "follow"
	followShorthand     = "l"
	pruneFlagName       = "prune"
	noGitignoreFlagName = "no-gitignore"
	noIgnoreFlagName    = "no-ignore"
	includeGitFlagName  = "git"
	formatFlagName      = "format"
	copyFlagName        = "copy"
	configFlagName      = "config"
	verboseFlagName     = "verbose"
	versionFlagName     = "version"
	globalFlagName      = "global"
	forceFlagName       = "force"

	versionTemplate      = "tree version: %s\n"
	initWrittenTemplate  = "configuration written to %s\n"
	defaultPath          = "."
	sortNoneValue        = "none"
	rootUse              = "tree [paths...]"
	rootShortDescription = "list directory contents as a tree"
	rootLongDescription  = `tree lists the contents of one or more directories as an indented tree.
Hidden entries, include and exclude patterns, ignore files, and empty directory
pruning decide what is shown. Use --format to select raw or json output.

Unlike Unix tree, patterns from .gitignore and .ignore in each listed directory are
applied by default and the .git directory is omitted. Pass --no-gitignore and
--no-ignore (or set use_gitignore/use_ignore to false in the configuration) to list
everything, and --git to include the .git directory.`
	rootUsageExample = `  # Show two levels of the current directory
  tree -L 2

  # Only Rust sources, pruning directories without any
  tree -P '*.rs' src

  # Directories first, with sizes, copied to the clipboard
  tree --dirsfirst -s --copy`
	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write the default configuration to ./` + utils.LocalConfigFileName + `,
or to ~/` + utils.GlobalConfigDirectoryName + `/` + utils.ConfigFileName + ` with --global.`

	allFlagDescription         = "show hidden entries"
	levelFlagDescription       = "descend at most this many levels (0 lists the root only; unlimited when unset)"
	patternFlagDescription     = "list only files matching the pattern; a|b lists alternatives"
	excludeFlagDescription     = "omit entries matching the pattern; a|b lists alternatives"
	sortFlagDescription        = "sort siblings by name, kind, size, or none"
	reverseFlagDescription     = "reverse the sort order"
	dirsFirstFlagDescription   = "list directories before files"
	colorFlagDescription       = "always colour the output"
	noColorFlagDescription     = "never colour the output"
	sizeFlagDescription        = "print human readable sizes"
	dateFlagDescription        = "print the last modification time"
	followFlagDescription      = "follow symbolic links to directories"
	pruneFlagDescription       = "omit directories left empty by filtering (on by default with --pattern)"
	noGitignoreFlagDescription = "do not use .gitignore"
	noIgnoreFlagDescription    = "do not use .ignore"
	includeGitFlagDescription  = "include the git directory"
	formatFlagDescription      = "output format: raw or json"
	copyFlagDescription        = "copy the output to the clipboard"
	configFlagDescription      = "configuration file to use instead of ./" + utils.LocalConfigFileName
	verboseFlagDescription     = "log debug details to stderr"
	versionFlagDescription     = "display application version"
	globalFlagDescription      = "write the global configuration"
	forceFlagDescription       = "overwrite an existing configuration file"

	warningDiagnosticMessage = "skipping unreadable entry"
	debugOptionsMessage      = "resolved options"

	// errorAbsolutePathFormat reports failure to resolve an absolute path.
	errorAbsolutePathFormat   = "abs failed for '%s': %w"
	errorUnsupportedSortFmt   = "%w: %q"
	errorUnsupportedFormatFmt = "%w: %q"
	errorUnsupportedColorFmt  = "unsupported color mode %q"
	errorNegativeLevelFormat  = "level must not be negative: %d"
	errorLoadConfigFormat     = "load configuration: %w"
	errorIgnorePatternsFormat = "load ignore patterns for %s: %w"
	errorCopyFormat           = "copy to clipboard: %w"
	workingDirectoryErrorFmt  = "unable to determine working directory: %w"
)

var (
	// ErrUnsupportedSortKey reports a --sort value that is not recognized.
	ErrUnsupportedSortKey = errors.New("unsupported sort key")
	// ErrUnsupportedFormat reports a --format value that is not recognized.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Dependencies are the collaborators of the command tree. Zero values fall back to the host.
type Dependencies struct {
	Logger     *zap.Logger
	Level      *zap.AtomicLevel
	FileSystem afero.Fs
	Clipboard  clipboard.Copier
	// ColorDetector reports whether colour should be used for writer when the mode is auto.
	ColorDetector func(writer io.Writer) bool
}

// treeFlags holds the raw flag values before configuration is applied.
type treeFlags struct {
	all         bool
	level       int
	patterns    []string
	excludes    []string
	sort        string
	reverse     bool
	dirsFirst   bool
	color       bool
	noColor     bool
	size        bool
	date        bool
	follow      bool
	prune       bool
	noGitignore bool
	noIgnore    bool
	includeGit  bool
	format      string
	copy        bool
	configPath  string
	verbose     bool
	showVersion bool
}

// Execute runs the tree application.
func Execute(dependencies Dependencies) error {
	rootCommand := NewRootCommand(dependencies)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	dependencies = withDefaults(dependencies)
	var flags treeFlags

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if flags.verbose && dependencies.Level != nil {
				dependencies.Level.SetLevel(zap.DebugLevel)
			}
			if flags.showVersion {
				_, writeError := fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return writeError
			}
			options, resolveError := resolveOptions(command.Flags(), flags, arguments)
			if resolveError != nil {
				return resolveError
			}
			return runTree(command.Context(), dependencies, options, command.OutOrStdout())
		},
	}

	flagSet := rootCommand.Flags()
	registerBooleanFlag(flagSet, &flags.all, allFlagName, allFlagShorthand, false, allFlagDescription)
	flagSet.IntVarP(&flags.level, levelFlagName, levelFlagShorthand, 0, levelFlagDescription)
	flagSet.StringArrayVarP(&flags.patterns, patternFlagName, patternShorthand, nil, patternFlagDescription)
	flagSet.StringArrayVarP(&flags.excludes, excludeFlagName, excludeShorthand, nil, excludeFlagDescription)
	flagSet.StringVar(&flags.sort, sortFlagName, types.SortName, sortFlagDescription)
	registerBooleanFlag(flagSet, &flags.reverse, reverseFlagName, reverseShorthand, false, reverseFlagDescription)
	registerBooleanFlag(flagSet, &flags.dirsFirst, dirsFirstFlagName, "", false, dirsFirstFlagDescription)
	registerBooleanFlag(flagSet, &flags.color, colorFlagName, colorShorthand, false, colorFlagDescription)
	registerBooleanFlag(flagSet, &flags.noColor, noColorFlagName, noColorShorthand, false, noColorFlagDescription)
	registerBooleanFlag(flagSet, &flags.size, sizeFlagName, sizeShorthand, false, sizeFlagDescription)
	registerBooleanFlag(flagSet, &flags.date, dateFlagName, dateShorthand, false, dateFlagDescription)
	registerBooleanFlag(flagSet, &flags.follow, followFlagName, followShorthand, false, followFlagDescription)
	registerBooleanFlag(flagSet, &flags.prune, pruneFlagName, "", false, pruneFlagDescription)
	registerBooleanFlag(flagSet, &flags.noGitignore, noGitignoreFlagName, "", false, noGitignoreFlagDescription)
	registerBooleanFlag(flagSet, &flags.noIgnore, noIgnoreFlagName, "", false, noIgnoreFlagDescription)
	registerBooleanFlag(flagSet, &flags.includeGit, includeGitFlagName, "", false, includeGitFlagDescription)
	flagSet.StringVar(&flags.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	registerBooleanFlag(flagSet, &flags.copy, copyFlagName, "", false, copyFlagDescription)
	flagSet.StringVar(&flags.configPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(flagSet, &flags.verbose, verboseFlagName, "", false, verboseFlagDescription)
	registerBooleanFlag(flagSet, &flags.showVersion, versionFlagName, "", false, versionFlagDescription)

	rootCommand.AddCommand(createInitCommand())
	rootCommand.InitDefaultHelpCmd()
	return rootCommand
}

func withDefaults(dependencies Dependencies) Dependencies {
	dependencies.Logger = utils.LoggerOrNop(dependencies.Logger)
	if dependencies.FileSystem == nil {
		dependencies.FileSystem = afero.NewOsFs()
	}
	if dependencies.Clipboard == nil {
		dependencies.Clipboard = clipboard.NewService()
	}
	if dependencies.ColorDetector == nil {
		dependencies.ColorDetector = detectColor
	}
	return dependencies
}

// detectColor reports whether writer is a terminal that supports colour.
func detectColor(writer io.Writer) bool {
	return lipgloss.NewRenderer(writer).ColorProfile() != termenv.Ascii
}

func createInitCommand() *cobra.Command {
	var global bool
	var force bool
	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, initError := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if initError != nil {
				return initError
			}
			_, writeError := fmt.Fprintf(command.OutOrStdout(), initWrittenTemplate, path)
			return writeError
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, "", false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, "", false, forceFlagDescription)
	return initCommand
}

// resolveOptions merges configuration files under the explicitly set flags and validates the result.
func resolveOptions(flagSet *pflag.FlagSet, flags treeFlags, arguments []string) (types.Options, error) {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return types.Options{}, fmt.Errorf(workingDirectoryErrorFmt, workingDirectoryError)
	}
	loaded, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: flags.configPath,
	})
	if loadError != nil {
		return types.Options{}, fmt.Errorf(errorLoadConfigFormat, loadError)
	}
	return mergeOptions(flagSet, flags, loaded.Tree, arguments)
}

func mergeOptions(flagSet *pflag.FlagSet, flags treeFlags, configuration config.TreeConfiguration, arguments []string) (types.Options, error) {
	applyBool := func(name string, target *bool, value *bool) {
		if value != nil && !flagSet.Changed(name) {
			*target = *value
		}
	}
	applyBool(allFlagName, &flags.all, configuration.All)
	applyBool(reverseFlagName, &flags.reverse, configuration.Reverse)
	applyBool(dirsFirstFlagName, &flags.dirsFirst, configuration.DirsFirst)
	applyBool(sizeFlagName, &flags.size, configuration.Size)
	applyBool(dateFlagName, &flags.date, configuration.Date)
	applyBool(followFlagName, &flags.follow, configuration.Follow)
	applyBool(copyFlagName, &flags.copy, configuration.Copy)
	hasLevel := flagSet.Changed(levelFlagName)
	if configuration.Level != nil && !hasLevel {
		flags.level = *configuration.Level
		hasLevel = true
	}
	if len(configuration.Patterns) > 0 && !flagSet.Changed(patternFlagName) {
		flags.patterns = configuration.Patterns
	}
	if configuration.Sort != "" && !flagSet.Changed(sortFlagName) {
		flags.sort = configuration.Sort
	}
	if configuration.Format != "" && !flagSet.Changed(formatFlagName) {
		flags.format = configuration.Format
	}

	options := types.Options{
		Paths:           arguments,
		ShowHidden:      flags.all,
		MaxDepth:        flags.level,
		HasMaxDepth:     hasLevel,
		IncludePatterns: flags.patterns,
		ExcludePatterns: append(append([]string{}, configuration.Paths.Exclude...), flags.excludes...),
		Reverse:         flags.reverse,
		DirsFirst:       flags.dirsFirst,
		ShowSize:        flags.size,
		ShowDate:        flags.date,
		FollowSymlinks:  flags.follow,
		UseGitignore:    config.BoolOr(configuration.Paths.UseGitignore, true),
		UseIgnoreFile:   config.BoolOr(configuration.Paths.UseIgnoreFile, true),
		IncludeGit:      config.BoolOr(configuration.Paths.IncludeGit, false),
		CopyToClipboard: flags.copy,
	}
	if len(options.Paths) == 0 {
		options.Paths = []string{defaultPath}
	}
	if flagSet.Changed(noGitignoreFlagName) {
		options.UseGitignore = !flags.noGitignore
	}
	if flagSet.Changed(noIgnoreFlagName) {
		options.UseIgnoreFile = !flags.noIgnore
	}
	if flagSet.Changed(includeGitFlagName) {
		options.IncludeGit = flags.includeGit
	}

	switch {
	case flagSet.Changed(pruneFlagName):
		options.PruneEmpty = flags.prune
	case configuration.Prune != nil:
		options.PruneEmpty = *configuration.Prune
	default:
		options.PruneEmpty = len(options.IncludePatterns) > 0
	}

	switch {
	case flagSet.Changed(noColorFlagName) && flags.noColor:
		options.ColorMode = types.ColorNever
	case flagSet.Changed(colorFlagName) && flags.color:
		options.ColorMode = types.ColorAlways
	case configuration.Color != "":
		options.ColorMode = strings.ToLower(configuration.Color)
	default:
		options.ColorMode = types.ColorAuto
	}
	switch options.ColorMode {
	case types.ColorAuto, types.ColorAlways, types.ColorNever:
	default:
		return types.Options{}, fmt.Errorf(errorUnsupportedColorFmt, options.ColorMode)
	}

	if options.MaxDepth < 0 {
		return types.Options{}, fmt.Errorf(errorNegativeLevelFormat, options.MaxDepth)
	}
	sortKey := strings.ToLower(flags.sort)
	switch sortKey {
	case types.SortName, types.SortKind, types.SortSize:
		options.Sort = sortKey
	case sortNoneValue, types.SortNone:
		options.Sort = types.SortNone
	default:
		return types.Options{}, fmt.Errorf(errorUnsupportedSortFmt, ErrUnsupportedSortKey, flags.sort)
	}
	format := strings.ToLower(flags.format)
	switch format {
	case types.FormatRaw, types.FormatJSON:
		options.Format = format
	default:
		return types.Options{}, fmt.Errorf(errorUnsupportedFormatFmt, ErrUnsupportedFormat, flags.format)
	}
	return options, nil
}

// preparedRoot is a validated root with its compiled filter.
type preparedRoot struct {
	path   types.ValidatedPath
	engine *filter.Engine
}

// runTree validates every root and compiles every filter before producing output, then streams the
// rendered lines to out.
func runTree(ctx context.Context, dependencies Dependencies, options types.Options, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := dependencies.Logger
	logger.Debug(debugOptionsMessage, zap.Any("options", options))

	validatedPaths, pathValidationError := resolveAndValidatePaths(dependencies.FileSystem, options.Paths)
	if pathValidationError != nil {
		return pathValidationError
	}
	roots := make([]preparedRoot, 0, len(validatedPaths))
	for _, validatedPath := range validatedPaths {
		ignorePatterns, ignoreError := config.LoadCombinedIgnorePatterns(dependencies.FileSystem, validatedPath.AbsolutePath, config.IgnoreOptions{
			UseGitignore:  options.UseGitignore,
			UseIgnoreFile: options.UseIgnoreFile,
			IncludeGit:    options.IncludeGit,
			Logger:        logger,
		})
		if ignoreError != nil {
			return fmt.Errorf(errorIgnorePatternsFormat, validatedPath.DisplayPath, ignoreError)
		}
		engine, engineError := filter.New(dependencies.FileSystem, filter.Options{
			ShowHidden:      options.ShowHidden,
			IncludePatterns: options.IncludePatterns,
			ExcludePatterns: options.ExcludePatterns,
			IgnorePatterns:  ignorePatterns,
			PruneEmpty:      options.PruneEmpty,
			FollowSymlinks:  options.FollowSymlinks,
			Logger:          logger,
		})
		if engineError != nil {
			return engineError
		}
		roots = append(roots, preparedRoot{path: validatedPath, engine: engine})
	}

	useColor := options.ColorMode == types.ColorAlways ||
		(options.ColorMode == types.ColorAuto && options.Format == types.FormatRaw && dependencies.ColorDetector(out))
	renderer := output.NewRenderer(output.Options{Color: useColor, ShowSize: options.ShowSize, ShowDate: options.ShowDate})

	produce := func(streamCtx context.Context, lines chan<- string) error {
		trees := make([]output.Tree, 0, len(roots))
		for _, root := range roots {
			builder := commands.NewTreeBuilder(dependencies.FileSystem, root.engine, commands.TreeOptions{
				MaxDepth:       options.MaxDepth,
				HasMaxDepth:    options.HasMaxDepth,
				FollowSymlinks: options.FollowSymlinks,
				RootName:       root.path.DisplayPath,
				Sort:           options.Sort,
				Reverse:        options.Reverse,
				DirsFirst:      options.DirsFirst,
			}, logger)
			node, summary, diagnostics, buildError := builder.Build(root.path.AbsolutePath)
			if buildError != nil {
				return buildError
			}
			for _, diagnostic := range diagnostics {
				logger.Warn(warningDiagnosticMessage,
					zap.String("path", diagnostic.Path),
					zap.String("category", string(diagnostic.Category)),
					zap.Error(diagnostic.Err),
				)
			}
			trees = append(trees, output.Tree{Root: node, Summary: summary})
		}
		emit := func(line string) error {
			select {
			case <-streamCtx.Done():
				return streamCtx.Err()
			case lines <- line:
				return nil
			}
		}
		if options.Format == types.FormatJSON {
			return renderer.StreamJSON(trees, emit)
		}
		return renderer.Stream(trees, emit)
	}

	var copied strings.Builder
	consume := func(line string) error {
		if options.CopyToClipboard {
			copied.WriteString(line)
			copied.WriteString("\n")
		}
		_, writeError := io.WriteString(out, line+"\n")
		return writeError
	}

	if dispatchError := dispatchStream(ctx, produce, consume); dispatchError != nil {
		return dispatchError
	}
	if options.CopyToClipboard {
		if copyError := dependencies.Clipboard.Copy(copied.String()); copyError != nil {
			return fmt.Errorf(errorCopyFormat, copyError)
		}
	}
	return nil
}

func dispatchStream(
	ctx context.Context,
	produce func(context.Context, chan<- string) error,
	consume func(string) error,
) error {
	group, streamCtx := errgroup.WithContext(ctx)
	lines := make(chan string)

	group.Go(func() error {
		defer close(lines)
		return produce(streamCtx, lines)
	})

	group.Go(func() error {
		for {
			select {
			case <-streamCtx.Done():
				return streamCtx.Err()
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				if err := consume(line); err != nil {
					return err
				}
			}
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// resolveAndValidatePaths converts input paths to absolute form and checks that each is a directory.
// Duplicate roots are rendered once.
func resolveAndValidatePaths(fileSystem afero.Fs, inputs []string) ([]types.ValidatedPath, error) {
	seen := make(map[string]struct{})
	var result []types.ValidatedPath
	for _, inputPath := range inputs {
		absolutePath, absolutePathError := filepath.Abs(inputPath)
		if absolutePathError != nil {
			return nil, fmt.Errorf(errorAbsolutePathFormat, inputPath, absolutePathError)
		}
		cleanPath := filepath.Clean(absolutePath)
		if _, ok := seen[cleanPath]; ok {
			continue
		}
		if validationError := traversal.ValidateRoot(fileSystem, cleanPath); validationError != nil {
			return nil, validationError
		}
		seen[cleanPath] = struct{}{}
		result = append(result, types.ValidatedPath{DisplayPath: inputPath, AbsolutePath: cleanPath})
	}
	return result, nil
}
