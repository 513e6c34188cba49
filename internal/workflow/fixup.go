package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	readmeFileNameConstant            = "README.md"
	markdownFenceConstant             = "```"
	markdownFenceLanguageConstant     = "markdown"
	fingerprintFailureTemplate        = "fingerprinting %s: %w"
	fixupWriteFailureTemplateConstant = "repairing %s: %w"
	transcriptLineSeparatorConstant   = "\n"
	markdownHeadingPrefixConstant     = "# "
)

// ArtifactFingerprint identifies README contents; absent files fingerprint to the empty string.
func ArtifactFingerprint(readmePath string) (string, error) {
	readmeContents, readError := os.ReadFile(readmePath)
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf(fingerprintFailureTemplate, readmePath, readError)
	}
	digest := sha256.Sum256(readmeContents)
	return hex.EncodeToString(digest[:]), nil
}

// ExtractCandidateFromTranscript performs the best-effort recovery of intended
// README content from a tool transcript: the first fenced markdown block, or
// failing that, the transcript from its first markdown heading onward. An empty
// result means no candidate was found, which is not an error.
func ExtractCandidateFromTranscript(transcriptContents string) string {
	fencedCandidate := extractFencedBlock(transcriptContents)
	if len(strings.TrimSpace(fencedCandidate)) > 0 {
		return fencedCandidate
	}
	return extractFromFirstHeading(transcriptContents)
}

func extractFencedBlock(transcriptContents string) string {
	transcriptLines := strings.Split(transcriptContents, transcriptLineSeparatorConstant)
	var blockLines []string
	insideBlock := false
	for _, transcriptLine := range transcriptLines {
		trimmedLine := strings.TrimSpace(transcriptLine)
		if !insideBlock {
			if trimmedLine == markdownFenceConstant+markdownFenceLanguageConstant || trimmedLine == markdownFenceConstant+"md" {
				insideBlock = true
			}
			continue
		}
		if trimmedLine == markdownFenceConstant {
			return strings.Join(blockLines, transcriptLineSeparatorConstant)
		}
		blockLines = append(blockLines, transcriptLine)
	}
	return ""
}

func extractFromFirstHeading(transcriptContents string) string {
	headingIndex := strings.Index(transcriptContents, markdownHeadingPrefixConstant)
	if headingIndex < 0 {
		return ""
	}
	if headingIndex > 0 && transcriptContents[headingIndex-1] != '\n' {
		return ""
	}
	return strings.TrimSpace(transcriptContents[headingIndex:])
}

// RepairArtifact overwrites the README with the recovered candidate when the
// candidate is non-empty and differs from the current contents.
func RepairArtifact(readmePath string, candidateContents string) (bool, error) {
	trimmedCandidate := strings.TrimSpace(candidateContents)
	if len(trimmedCandidate) == 0 {
		return false, nil
	}

	currentContents, readError := os.ReadFile(readmePath)
	if readError != nil && !errors.Is(readError, os.ErrNotExist) {
		return false, fmt.Errorf(fixupWriteFailureTemplateConstant, readmePath, readError)
	}
	if strings.TrimSpace(string(currentContents)) == trimmedCandidate {
		return false, nil
	}

	if writeError := os.WriteFile(readmePath, []byte(trimmedCandidate+transcriptLineSeparatorConstant), baselineFilePermissionsConstant); writeError != nil {
		return false, fmt.Errorf(fixupWriteFailureTemplateConstant, readmePath, writeError)
	}
	return true, nil
}
