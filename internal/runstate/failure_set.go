package runstate

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

const (
	failureSetFileNameConstant         = "failed-targets.txt"
	failureSetFilePermissionsConstant  = 0o644
	failureSetPathRequiredMessage      = "failure set path required"
	failureAppendFailureTemplate       = "recording failed target %s: %w"
	failureReadFailureTemplateConstant = "reading failure set %s: %w"
	failureClearFailureTemplate        = "clearing failure set %s: %w"
	failureLineTemplateConstant        = "%s\n"
)

// ErrFailureSetPathRequired indicates the failure set was constructed without a backing path.
var ErrFailureSetPathRequired = errors.New(failureSetPathRequiredMessage)

// FailureSet is a run-scoped, file-backed list of failed target identifiers.
// Duplicates are tolerated on write and removed on read.
type FailureSet struct {
	filePath string
	mutex    sync.Mutex
}

// NewFailureSet constructs a FailureSet persisted at the provided path.
func NewFailureSet(filePath string) (*FailureSet, error) {
	if len(strings.TrimSpace(filePath)) == 0 {
		return nil, ErrFailureSetPathRequired
	}
	return &FailureSet{filePath: filePath}, nil
}

// Record appends a failed target identifier under the set's lock.
func (failureSet *FailureSet) Record(targetIdentifier string) error {
	trimmedIdentifier := strings.TrimSpace(targetIdentifier)
	if len(trimmedIdentifier) == 0 {
		return nil
	}

	failureSet.mutex.Lock()
	defer failureSet.mutex.Unlock()

	setFile, openError := os.OpenFile(failureSet.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, failureSetFilePermissionsConstant)
	if openError != nil {
		return fmt.Errorf(failureAppendFailureTemplate, trimmedIdentifier, openError)
	}
	defer setFile.Close()

	if _, writeError := setFile.WriteString(fmt.Sprintf(failureLineTemplateConstant, trimmedIdentifier)); writeError != nil {
		return fmt.Errorf(failureAppendFailureTemplate, trimmedIdentifier, writeError)
	}
	return nil
}

// FailedTargets returns the deduplicated, sorted identifiers currently recorded.
func (failureSet *FailureSet) FailedTargets() ([]string, error) {
	failureSet.mutex.Lock()
	defer failureSet.mutex.Unlock()

	setFile, openError := os.Open(failureSet.filePath)
	if openError != nil {
		if errors.Is(openError, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(failureReadFailureTemplateConstant, failureSet.filePath, openError)
	}
	defer setFile.Close()

	seenIdentifiers := map[string]bool{}
	var failedTargets []string
	lineScanner := bufio.NewScanner(setFile)
	for lineScanner.Scan() {
		identifier := strings.TrimSpace(lineScanner.Text())
		if len(identifier) == 0 || seenIdentifiers[identifier] {
			continue
		}
		seenIdentifiers[identifier] = true
		failedTargets = append(failedTargets, identifier)
	}
	if scanError := lineScanner.Err(); scanError != nil {
		return nil, fmt.Errorf(failureReadFailureTemplateConstant, failureSet.filePath, scanError)
	}

	sort.Strings(failedTargets)
	return failedTargets, nil
}

// Clear removes the backing file after a retry pass consumes the set.
func (failureSet *FailureSet) Clear() error {
	failureSet.mutex.Lock()
	defer failureSet.mutex.Unlock()

	removeError := os.Remove(failureSet.filePath)
	if removeError != nil && !errors.Is(removeError, os.ErrNotExist) {
		return fmt.Errorf(failureClearFailureTemplate, failureSet.filePath, removeError)
	}
	return nil
}
