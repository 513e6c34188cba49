package generate

import (
	"strings"

	pathutils "github.com/kira-id/auto-readme-generator-in-batch/internal/utils/path"
)

const (
	configurationRootKeyConstant          = "root"
	configurationAPIKeyKeyConstant        = "api_key"
	configurationModelKeyConstant         = "model"
	configurationJobsKeyConstant          = "jobs"
	configurationTimeoutKeyConstant       = "timeout_seconds"
	configurationRetryKeyConstant         = "retry"
	configurationDryRunKeyConstant        = "dry_run"
	configurationForceKeyConstant         = "force"
	configurationPromptKeyConstant        = "prompt"
	configurationCommitMessageKeyConstant = "commit_message"
	configurationLicenseFileKeyConstant   = "license_file"
	configurationRefreshKeyConstant       = "refresh_descriptions"
	configurationKeySeparatorConstant     = "."

	defaultTargetsRootConstant    = "."
	defaultTimeoutSecondsConstant = 300
)

// CommandConfiguration describes configuration values for the generate command.
type CommandConfiguration struct {
	Root                string `mapstructure:"root"`
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	Jobs                int    `mapstructure:"jobs"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	Retry               int    `mapstructure:"retry"`
	DryRun              bool   `mapstructure:"dry_run"`
	Force               bool   `mapstructure:"force"`
	Prompt              string `mapstructure:"prompt"`
	CommitMessage       string `mapstructure:"commit_message"`
	LicenseFile         string `mapstructure:"license_file"`
	RefreshDescriptions bool   `mapstructure:"refresh_descriptions"`
}

// DefaultCommandConfiguration returns baseline configuration values for generate.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Root:           defaultTargetsRootConstant,
		TimeoutSeconds: defaultTimeoutSecondsConstant,
	}
}

// DefaultConfigurationValues produces Viper defaults for the generate command.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + configurationKeySeparatorConstant + configurationRootKeyConstant:          defaults.Root,
		rootKey + configurationKeySeparatorConstant + configurationAPIKeyKeyConstant:        defaults.APIKey,
		rootKey + configurationKeySeparatorConstant + configurationModelKeyConstant:         defaults.Model,
		rootKey + configurationKeySeparatorConstant + configurationJobsKeyConstant:          defaults.Jobs,
		rootKey + configurationKeySeparatorConstant + configurationTimeoutKeyConstant:       defaults.TimeoutSeconds,
		rootKey + configurationKeySeparatorConstant + configurationRetryKeyConstant:         defaults.Retry,
		rootKey + configurationKeySeparatorConstant + configurationDryRunKeyConstant:        defaults.DryRun,
		rootKey + configurationKeySeparatorConstant + configurationForceKeyConstant:         defaults.Force,
		rootKey + configurationKeySeparatorConstant + configurationPromptKeyConstant:        defaults.Prompt,
		rootKey + configurationKeySeparatorConstant + configurationCommitMessageKeyConstant: defaults.CommitMessage,
		rootKey + configurationKeySeparatorConstant + configurationLicenseFileKeyConstant:   defaults.LicenseFile,
		rootKey + configurationKeySeparatorConstant + configurationRefreshKeyConstant:       defaults.RefreshDescriptions,
	}
}

// Sanitize normalizes generate configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Root = pathutils.NewHomeExpander().Expand(strings.TrimSpace(configuration.Root))
	if len(sanitized.Root) == 0 {
		sanitized.Root = defaultTargetsRootConstant
	}
	sanitized.APIKey = strings.TrimSpace(configuration.APIKey)
	sanitized.Model = strings.TrimSpace(configuration.Model)
	sanitized.CommitMessage = strings.TrimSpace(configuration.CommitMessage)
	sanitized.LicenseFile = pathutils.NewHomeExpander().Expand(strings.TrimSpace(configuration.LicenseFile))
	if sanitized.Jobs < 0 {
		sanitized.Jobs = 0
	}
	if sanitized.TimeoutSeconds <= 0 {
		sanitized.TimeoutSeconds = defaultTimeoutSecondsConstant
	}
	if sanitized.Retry < 0 {
		sanitized.Retry = 0
	}
	return sanitized
}
