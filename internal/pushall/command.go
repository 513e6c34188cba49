package pushall

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/dependencies"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/gitrepo"
	pathutils "github.com/kira-id/auto-readme-generator-in-batch/internal/utils/path"
)

const (
	commandUseConstant              = "push"
	commandShortDescriptionConstant = "Commit and push every repository with working-tree changes"
	commandLongDescriptionConstant  = "push stages, commits, and pushes the changes of each discovered repository under the targets root."

	repoFlagNameConstant            = "repo"
	repoFlagDescriptionConstant     = "Targets root directory containing repositories"
	messageFlagNameConstant         = "message"
	messageFlagDescriptionConstant  = "Commit message applied to every repository"
	jobsFlagNameConstant            = "jobs"
	jobsFlagDescriptionConstant     = "Concurrent workers (defaults to the CPU count)"
	timeoutFlagNameConstant         = "timeout"
	timeoutFlagDescriptionConstant  = "Per-target timeout in seconds"
	dryRunFlagNameConstant          = "dry-run"
	dryRunFlagDescriptionConstant   = "Preview pushes without committing or pushing"
	executorErrorTemplateConstant   = "unable to construct shell executor: %w"
	repositoryErrorTemplateConstant = "unable to construct repository manager: %w"
	serviceErrorTemplateConstant    = "unable to construct push service: %w"

	configurationRootKeyConstant          = "root"
	configurationCommitMessageKeyConstant = "commit_message"
	configurationJobsKeyConstant          = "jobs"
	configurationTimeoutKeyConstant       = "timeout_seconds"
	configurationDryRunKeyConstant        = "dry_run"
	configurationKeySeparatorConstant     = "."
	defaultTargetsRootConstant            = "."
	defaultTimeoutSecondsConstant         = 300
)

// CommandConfiguration describes configuration values for the push command.
type CommandConfiguration struct {
	Root           string `mapstructure:"root"`
	CommitMessage  string `mapstructure:"commit_message"`
	Jobs           int    `mapstructure:"jobs"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DryRun         bool   `mapstructure:"dry_run"`
}

// DefaultCommandConfiguration returns baseline configuration values for push.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Root:           defaultTargetsRootConstant,
		TimeoutSeconds: defaultTimeoutSecondsConstant,
	}
}

// DefaultConfigurationValues produces Viper defaults for the push command.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + configurationKeySeparatorConstant + configurationRootKeyConstant:          defaults.Root,
		rootKey + configurationKeySeparatorConstant + configurationCommitMessageKeyConstant: defaults.CommitMessage,
		rootKey + configurationKeySeparatorConstant + configurationJobsKeyConstant:          defaults.Jobs,
		rootKey + configurationKeySeparatorConstant + configurationTimeoutKeyConstant:       defaults.TimeoutSeconds,
		rootKey + configurationKeySeparatorConstant + configurationDryRunKeyConstant:        defaults.DryRun,
	}
}

// Sanitize normalizes push configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Root = pathutils.NewHomeExpander().Expand(strings.TrimSpace(configuration.Root))
	if len(sanitized.Root) == 0 {
		sanitized.Root = defaultTargetsRootConstant
	}
	sanitized.CommitMessage = strings.TrimSpace(configuration.CommitMessage)
	if sanitized.Jobs < 0 {
		sanitized.Jobs = 0
	}
	if sanitized.TimeoutSeconds <= 0 {
		sanitized.TimeoutSeconds = defaultTimeoutSecondsConstant
	}
	return sanitized
}

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the push command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the push command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(repoFlagNameConstant, "", repoFlagDescriptionConstant)
	command.Flags().String(messageFlagNameConstant, "", messageFlagDescriptionConstant)
	command.Flags().Int(jobsFlagNameConstant, 0, jobsFlagDescriptionConstant)
	command.Flags().Int(timeoutFlagNameConstant, 0, timeoutFlagDescriptionConstant)
	command.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	builder.applyFlagOverrides(command, &configuration)

	logger := builder.resolveLogger()
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}

	executor, executorError := dependencies.ResolveShellExecutor(logger, humanReadableLogging)
	if executorError != nil {
		return fmt.Errorf(executorErrorTemplateConstant, executorError)
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(executor)
	if managerError != nil {
		return fmt.Errorf(repositoryErrorTemplateConstant, managerError)
	}

	service, serviceError := NewService(ServiceDependencies{
		Logger:     logger,
		Repository: repositoryManager,
		Output:     command.OutOrStdout(),
	}, ServiceOptions{
		TargetsRoot:   configuration.Root,
		CommitMessage: configuration.CommitMessage,
		WorkerCount:   configuration.Jobs,
		TargetTimeout: time.Duration(configuration.TimeoutSeconds) * time.Second,
		DryRun:        configuration.DryRun,
	})
	if serviceError != nil {
		return fmt.Errorf(serviceErrorTemplateConstant, serviceError)
	}

	_, runError := service.Run(command.Context())
	return runError
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) applyFlagOverrides(command *cobra.Command, configuration *CommandConfiguration) {
	if command == nil {
		return
	}
	flags := command.Flags()
	if flags.Changed(repoFlagNameConstant) {
		configuration.Root, _ = flags.GetString(repoFlagNameConstant)
	}
	if flags.Changed(messageFlagNameConstant) {
		configuration.CommitMessage, _ = flags.GetString(messageFlagNameConstant)
	}
	if flags.Changed(jobsFlagNameConstant) {
		configuration.Jobs, _ = flags.GetInt(jobsFlagNameConstant)
	}
	if flags.Changed(timeoutFlagNameConstant) {
		configuration.TimeoutSeconds, _ = flags.GetInt(timeoutFlagNameConstant)
	}
	if flags.Changed(dryRunFlagNameConstant) {
		configuration.DryRun, _ = flags.GetBool(dryRunFlagNameConstant)
	}
	*configuration = configuration.Sanitize()
}
