package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	gitignoreFileNameConstant       = ".gitignore"
	licenseFileNameConstant         = "LICENSE"
	baselineFilePermissionsConstant = 0o644
	gitignoreEntrySeparatorConstant = "\n"
	setupFailureTemplateConstant    = "provisioning %s in %s: %w"
)

var defaultGitignoreEntries = []string{
	".DS_Store",
	"*.log",
	".env",
}

// BaselineProvisioner performs idempotent setup of a target working tree. It
// appends missing entries and creates absent files, never clobbering content.
type BaselineProvisioner struct {
	gitignoreEntries []string
	licenseText      string
}

// NewBaselineProvisioner constructs a provisioner with the default gitignore
// entries and the provided license text. An empty license text disables
// license provisioning.
func NewBaselineProvisioner(licenseText string) *BaselineProvisioner {
	return &BaselineProvisioner{gitignoreEntries: defaultGitignoreEntries, licenseText: licenseText}
}

// EnsureBaseline provisions the target directory. Safe to re-run unboundedly.
func (provisioner *BaselineProvisioner) EnsureBaseline(targetPath string) error {
	if ensureError := provisioner.ensureGitignore(targetPath); ensureError != nil {
		return ensureError
	}
	return provisioner.ensureLicense(targetPath)
}

func (provisioner *BaselineProvisioner) ensureGitignore(targetPath string) error {
	gitignorePath := filepath.Join(targetPath, gitignoreFileNameConstant)

	existingContents, readError := os.ReadFile(gitignorePath)
	if readError != nil && !errors.Is(readError, os.ErrNotExist) {
		return fmt.Errorf(setupFailureTemplateConstant, gitignoreFileNameConstant, targetPath, readError)
	}

	existingEntries := map[string]bool{}
	for _, existingLine := range strings.Split(string(existingContents), gitignoreEntrySeparatorConstant) {
		existingEntries[strings.TrimSpace(existingLine)] = true
	}

	var missingEntries []string
	for _, requiredEntry := range provisioner.gitignoreEntries {
		if !existingEntries[requiredEntry] {
			missingEntries = append(missingEntries, requiredEntry)
		}
	}
	if len(missingEntries) == 0 {
		return nil
	}

	updatedContents := string(existingContents)
	if len(updatedContents) > 0 && !strings.HasSuffix(updatedContents, gitignoreEntrySeparatorConstant) {
		updatedContents += gitignoreEntrySeparatorConstant
	}
	updatedContents += strings.Join(missingEntries, gitignoreEntrySeparatorConstant) + gitignoreEntrySeparatorConstant

	if writeError := os.WriteFile(gitignorePath, []byte(updatedContents), baselineFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(setupFailureTemplateConstant, gitignoreFileNameConstant, targetPath, writeError)
	}
	return nil
}

func (provisioner *BaselineProvisioner) ensureLicense(targetPath string) error {
	if len(provisioner.licenseText) == 0 {
		return nil
	}

	licensePath := filepath.Join(targetPath, licenseFileNameConstant)
	if _, statError := os.Stat(licensePath); statError == nil {
		return nil
	} else if !errors.Is(statError, os.ErrNotExist) {
		return fmt.Errorf(setupFailureTemplateConstant, licenseFileNameConstant, targetPath, statError)
	}

	if writeError := os.WriteFile(licensePath, []byte(provisioner.licenseText), baselineFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(setupFailureTemplateConstant, licenseFileNameConstant, targetPath, writeError)
	}
	return nil
}
