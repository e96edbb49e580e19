package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/tree/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds the configuration file contents.
type ApplicationConfiguration struct {
	Tree TreeConfiguration `mapstructure:"tree"`
}

// TreeConfiguration holds defaults for the tree command. Unset fields leave the flag defaults in place.
type TreeConfiguration struct {
	All       *bool             `mapstructure:"all"`
	Level     *int              `mapstructure:"level"`
	Patterns  []string          `mapstructure:"pattern"`
	Sort      string            `mapstructure:"sort"`
	Reverse   *bool             `mapstructure:"reverse"`
	DirsFirst *bool             `mapstructure:"dirsfirst"`
	Color     string            `mapstructure:"color"`
	Size      *bool             `mapstructure:"size"`
	Date      *bool             `mapstructure:"date"`
	Follow    *bool             `mapstructure:"follow"`
	Prune     *bool             `mapstructure:"prune"`
	Format    string            `mapstructure:"format"`
	Copy      *bool             `mapstructure:"copy"`
	Paths     PathConfiguration `mapstructure:"paths"`
}

// PathConfiguration configures exclusion rules for path traversal.
type PathConfiguration struct {
	Exclude       []string `mapstructure:"exclude"`
	UseGitignore  *bool    `mapstructure:"use_gitignore"`
	UseIgnoreFile *bool    `mapstructure:"use_ignore"`
	IncludeGit    *bool    `mapstructure:"include_git"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	merged.Tree.Paths.Exclude = utils.DeduplicatePatterns(merged.Tree.Paths.Exclude)
	merged.Tree.Patterns = utils.DeduplicatePatterns(merged.Tree.Patterns)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.LocalConfigFileName)
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath
	}
	return filepath.Join(workingDirectory, explicitPath)
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Tree = result.Tree.merge(override.Tree)
	return result
}

func (config TreeConfiguration) merge(override TreeConfiguration) TreeConfiguration {
	result := config
	result.All = overrideBool(result.All, override.All)
	if override.Level != nil {
		level := *override.Level
		result.Level = &level
	}
	if len(override.Patterns) > 0 {
		result.Patterns = append([]string{}, override.Patterns...)
	}
	if override.Sort != "" {
		result.Sort = override.Sort
	}
	result.Reverse = overrideBool(result.Reverse, override.Reverse)
	result.DirsFirst = overrideBool(result.DirsFirst, override.DirsFirst)
	if override.Color != "" {
		result.Color = override.Color
	}
	result.Size = overrideBool(result.Size, override.Size)
	result.Date = overrideBool(result.Date, override.Date)
	result.Follow = overrideBool(result.Follow, override.Follow)
	result.Prune = overrideBool(result.Prune, override.Prune)
	if override.Format != "" {
		result.Format = override.Format
	}
	result.Copy = overrideBool(result.Copy, override.Copy)
	result.Paths = result.Paths.merge(override.Paths)
	return result
}

func (config PathConfiguration) merge(override PathConfiguration) PathConfiguration {
	result := config
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	result.UseGitignore = overrideBool(result.UseGitignore, override.UseGitignore)
	result.UseIgnoreFile = overrideBool(result.UseIgnoreFile, override.UseIgnoreFile)
	result.IncludeGit = overrideBool(result.IncludeGit, override.IncludeGit)
	return result
}

func overrideBool(current *bool, override *bool) *bool {
	if override == nil {
		return current
	}
	cloned := *override
	return &cloned
}

// BoolOr dereferences value, returning fallback when it is unset.
func BoolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
