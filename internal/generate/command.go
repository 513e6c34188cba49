package generate

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/dependencies"
	"github.com/kira-id/auto-readme-generator-in-batch/internal/githubcli"
)

const (
	commandUseConstant              = "generate"
	commandShortDescriptionConstant = "Regenerate README files across discovered repositories"
	commandLongDescriptionConstant  = "generate discovers repositories under the targets root, runs the AI assistant against each one, and commits regenerated README files."

	apiKeyFlagNameConstant             = "api-key"
	apiKeyFlagDescriptionConstant      = "Assistant API key (falls back to ANTHROPIC_API_KEY)"
	modelFlagNameConstant              = "model"
	modelFlagDescriptionConstant       = "Assistant model identifier"
	repoFlagNameConstant               = "repo"
	repoFlagDescriptionConstant        = "Targets root directory containing repositories"
	jobsFlagNameConstant               = "jobs"
	jobsFlagDescriptionConstant        = "Concurrent workers (defaults to the CPU count)"
	timeoutFlagNameConstant            = "timeout"
	timeoutFlagDescriptionConstant     = "Per-target timeout in seconds"
	retryFlagNameConstant              = "retry"
	retryFlagDescriptionConstant       = "Enable one retry pass over failed targets when greater than zero"
	dryRunFlagNameConstant             = "dry-run"
	dryRunFlagDescriptionConstant      = "Preview the run without invoking the assistant or mutating targets"
	forceFlagNameConstant              = "force"
	forceFlagDescriptionConstant       = "Reprocess targets even when their checkpoint already succeeded"
	licenseFileFlagNameConstant        = "license-file"
	licenseFileFlagDescriptionConstant = "Path to a license file provisioned into targets missing a LICENSE"

	apiKeyEnvironmentVariableName    = "ANTHROPIC_API_KEY"
	executorErrorTemplateConstant    = "unable to construct shell executor: %w"
	clientErrorTemplateConstant      = "unable to construct GitHub client: %w"
	serviceErrorTemplateConstant     = "unable to construct generate service: %w"
	licenseFileErrorTemplateConstant = "unable to read license file %s: %w"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the generate command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// Build constructs the generate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(apiKeyFlagNameConstant, "", apiKeyFlagDescriptionConstant)
	command.Flags().String(modelFlagNameConstant, "", modelFlagDescriptionConstant)
	command.Flags().String(repoFlagNameConstant, "", repoFlagDescriptionConstant)
	command.Flags().Int(jobsFlagNameConstant, 0, jobsFlagDescriptionConstant)
	command.Flags().Int(timeoutFlagNameConstant, 0, timeoutFlagDescriptionConstant)
	command.Flags().Int(retryFlagNameConstant, 0, retryFlagDescriptionConstant)
	command.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagDescriptionConstant)
	command.Flags().Bool(forceFlagNameConstant, false, forceFlagDescriptionConstant)
	command.Flags().String(licenseFileFlagNameConstant, "", licenseFileFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	applyFlagOverrides(command, &configuration)

	if len(configuration.APIKey) == 0 {
		configuration.APIKey = os.Getenv(apiKeyEnvironmentVariableName)
	}

	licenseText, licenseError := loadLicenseText(configuration.LicenseFile)
	if licenseError != nil {
		return licenseError
	}

	logger := builder.resolveLogger()
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}

	executor, executorError := dependencies.ResolveShellExecutor(logger, humanReadableLogging)
	if executorError != nil {
		return fmt.Errorf(executorErrorTemplateConstant, executorError)
	}

	descriptionClient, clientError := githubcli.NewClient(executor)
	if clientError != nil {
		return fmt.Errorf(clientErrorTemplateConstant, clientError)
	}

	service, serviceError := NewService(ServiceDependencies{
		Logger:            logger,
		Executor:          executor,
		DescriptionClient: descriptionClient,
		Output:            command.OutOrStdout(),
	}, ServiceOptions{
		TargetsRoot:         configuration.Root,
		APIKey:              configuration.APIKey,
		Model:               configuration.Model,
		Prompt:              configuration.Prompt,
		CommitMessage:       configuration.CommitMessage,
		LicenseText:         licenseText,
		WorkerCount:         configuration.Jobs,
		RetryCount:          configuration.Retry,
		TargetTimeout:       time.Duration(configuration.TimeoutSeconds) * time.Second,
		DryRun:              configuration.DryRun,
		Force:               configuration.Force,
		RefreshDescriptions: configuration.RefreshDescriptions,
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

func applyFlagOverrides(command *cobra.Command, configuration *CommandConfiguration) {
	if command == nil {
		return
	}
	flags := command.Flags()
	if flags.Changed(apiKeyFlagNameConstant) {
		configuration.APIKey, _ = flags.GetString(apiKeyFlagNameConstant)
	}
	if flags.Changed(modelFlagNameConstant) {
		configuration.Model, _ = flags.GetString(modelFlagNameConstant)
	}
	if flags.Changed(repoFlagNameConstant) {
		configuration.Root, _ = flags.GetString(repoFlagNameConstant)
	}
	if flags.Changed(jobsFlagNameConstant) {
		configuration.Jobs, _ = flags.GetInt(jobsFlagNameConstant)
	}
	if flags.Changed(timeoutFlagNameConstant) {
		configuration.TimeoutSeconds, _ = flags.GetInt(timeoutFlagNameConstant)
	}
	if flags.Changed(retryFlagNameConstant) {
		configuration.Retry, _ = flags.GetInt(retryFlagNameConstant)
	}
	if flags.Changed(dryRunFlagNameConstant) {
		configuration.DryRun, _ = flags.GetBool(dryRunFlagNameConstant)
	}
	if flags.Changed(forceFlagNameConstant) {
		configuration.Force, _ = flags.GetBool(forceFlagNameConstant)
	}
	if flags.Changed(licenseFileFlagNameConstant) {
		configuration.LicenseFile, _ = flags.GetString(licenseFileFlagNameConstant)
	}
	*configuration = configuration.Sanitize()
}

// loadLicenseText reads the configured license file. An empty path disables
// license provisioning entirely.
func loadLicenseText(licenseFilePath string) (string, error) {
	if len(licenseFilePath) == 0 {
		return "", nil
	}
	licenseContents, readError := os.ReadFile(licenseFilePath)
	if readError != nil {
		return "", fmt.Errorf(licenseFileErrorTemplateConstant, licenseFilePath, readError)
	}
	return string(licenseContents), nil
}
