package secrets

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/dependencies"
	pathutils "github.com/kira-id/auto-readme-generator-in-batch/internal/utils/path"
)

const (
	commandUseConstant              = "scan"
	commandShortDescriptionConstant = "Scan every discovered repository for committed secrets"
	commandLongDescriptionConstant  = "scan runs the secret scanner against each repository under the targets root and reports findings per target."

	repoFlagNameConstant           = "repo"
	repoFlagDescriptionConstant    = "Targets root directory containing repositories"
	jobsFlagNameConstant           = "jobs"
	jobsFlagDescriptionConstant    = "Concurrent workers (defaults to the CPU count)"
	timeoutFlagNameConstant        = "timeout"
	timeoutFlagDescriptionConstant = "Per-target timeout in seconds"
	executorErrorTemplateConstant  = "unable to construct shell executor: %w"
	serviceErrorTemplateConstant   = "unable to construct scan service: %w"

	configurationRootKeyConstant      = "root"
	configurationJobsKeyConstant      = "jobs"
	configurationTimeoutKeyConstant   = "timeout_seconds"
	configurationKeySeparatorConstant = "."
	defaultTargetsRootConstant        = "."
	defaultTimeoutSecondsConstant     = 300
)

// CommandConfiguration describes configuration values for the scan command.
type CommandConfiguration struct {
	Root           string `mapstructure:"root"`
	Jobs           int    `mapstructure:"jobs"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DefaultCommandConfiguration returns baseline configuration values for scan.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Root:           defaultTargetsRootConstant,
		TimeoutSeconds: defaultTimeoutSecondsConstant,
	}
}

// DefaultConfigurationValues produces Viper defaults for the scan command.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + configurationKeySeparatorConstant + configurationRootKeyConstant:    defaults.Root,
		rootKey + configurationKeySeparatorConstant + configurationJobsKeyConstant:    defaults.Jobs,
		rootKey + configurationKeySeparatorConstant + configurationTimeoutKeyConstant: defaults.TimeoutSeconds,
	}
}

// Sanitize normalizes scan configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Root = pathutils.NewHomeExpander().Expand(strings.TrimSpace(configuration.Root))
	if len(sanitized.Root) == 0 {
		sanitized.Root = defaultTargetsRootConstant
	}
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

// CommandBuilder assembles the scan command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the scan command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(repoFlagNameConstant, "", repoFlagDescriptionConstant)
	command.Flags().Int(jobsFlagNameConstant, 0, jobsFlagDescriptionConstant)
	command.Flags().Int(timeoutFlagNameConstant, 0, timeoutFlagDescriptionConstant)

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

	service, serviceError := NewBatchService(BatchServiceDependencies{
		Logger:   logger,
		Executor: executor,
		Output:   command.OutOrStdout(),
	}, BatchServiceOptions{
		TargetsRoot:   configuration.Root,
		WorkerCount:   configuration.Jobs,
		TargetTimeout: time.Duration(configuration.TimeoutSeconds) * time.Second,
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
	if flags.Changed(jobsFlagNameConstant) {
		configuration.Jobs, _ = flags.GetInt(jobsFlagNameConstant)
	}
	if flags.Changed(timeoutFlagNameConstant) {
		configuration.TimeoutSeconds, _ = flags.GetInt(timeoutFlagNameConstant)
	}
	*configuration = configuration.Sanitize()
}
