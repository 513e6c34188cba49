package runstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// StateDirectoryName is the orchestrator state directory nested inside the targets root.
	StateDirectoryName = ".readme-batch"
	// CheckpointLogFileName is the append log shared by every run under the same root.
	CheckpointLogFileName = "checkpoints.log"

	runsDirectoryNameConstant     = "runs"
	logsDirectoryNameConstant     = "logs"
	resultsDirectoryNameConstant  = "results"
	tempDirectoryNameConstant     = "tmp"
	runIdentifierTemplateConstant = "run-%s-%s"
	runTimestampLayoutConstant    = "20060102-150405"
	runUniqueSuffixLengthConstant = 8
	directoryPermissionsConstant  = 0o755
	rootRequiredMessageConstant   = "targets root required for run layout"
	layoutFailureTemplateConstant = "creating run directory %s: %w"
)

// ErrRootRequired indicates layout preparation was requested without a root.
var ErrRootRequired = errors.New(rootRequiredMessageConstant)

// NewRunIdentifier builds a timestamp-based run identifier with a random suffix
// so concurrent runs under the same root never collide on disk.
func NewRunIdentifier(currentTime time.Time) string {
	uniqueSuffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:runUniqueSuffixLengthConstant]
	return fmt.Sprintf(runIdentifierTemplateConstant, currentTime.UTC().Format(runTimestampLayoutConstant), uniqueSuffix)
}

// Layout names every on-disk location owned by one run.
type Layout struct {
	RunIdentifier     string
	StateDirectory    string
	CheckpointLogPath string
	LogsDirectory     string
	ResultsDirectory  string
	TempDirectory     string
	FailureSetPath    string
}

// NewLayout computes the run layout under the targets root without touching the filesystem.
func NewLayout(rootPath string, runIdentifier string) (Layout, error) {
	trimmedRoot := strings.TrimSpace(rootPath)
	if len(trimmedRoot) == 0 {
		return Layout{}, ErrRootRequired
	}

	stateDirectory := filepath.Join(trimmedRoot, StateDirectoryName)
	runDirectory := filepath.Join(stateDirectory, runsDirectoryNameConstant, runIdentifier)
	tempDirectory := filepath.Join(runDirectory, tempDirectoryNameConstant)
	return Layout{
		RunIdentifier:     runIdentifier,
		StateDirectory:    stateDirectory,
		CheckpointLogPath: filepath.Join(stateDirectory, CheckpointLogFileName),
		LogsDirectory:     filepath.Join(runDirectory, logsDirectoryNameConstant),
		ResultsDirectory:  filepath.Join(runDirectory, resultsDirectoryNameConstant),
		TempDirectory:     tempDirectory,
		FailureSetPath:    filepath.Join(tempDirectory, failureSetFileNameConstant),
	}, nil
}

// Prepare creates the run's directories. Dry runs never call Prepare so no
// state directory appears on disk.
func (layout Layout) Prepare() error {
	for _, directoryPath := range []string{layout.LogsDirectory, layout.ResultsDirectory, layout.TempDirectory} {
		if creationError := os.MkdirAll(directoryPath, directoryPermissionsConstant); creationError != nil {
			return fmt.Errorf(layoutFailureTemplateConstant, directoryPath, creationError)
		}
	}
	return nil
}
