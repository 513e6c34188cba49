package targets

import (
	"fmt"
	"strings"
)

const (
	fallbackIdentifierConstant           = "unnamed-target"
	collisionSuffixTemplateConstant      = "%s-%d"
	identifierAllowedExtraRunesConstant  = "-_"
	leadingDotRuneConstant               = '.'
	initialCollisionSuffixNumberConstant = 2
)

// SanitizeIdentifier derives a filesystem-safe identifier from a directory name.
// Non-alphanumeric runes other than dashes and underscores are stripped, as are
// leading dots; an empty result falls back to a fixed placeholder.
func SanitizeIdentifier(directoryName string) string {
	trimmedName := strings.TrimSpace(directoryName)
	for len(trimmedName) > 0 && trimmedName[0] == leadingDotRuneConstant {
		trimmedName = trimmedName[1:]
	}

	var identifierBuilder strings.Builder
	for _, currentRune := range trimmedName {
		switch {
		case currentRune >= 'a' && currentRune <= 'z',
			currentRune >= 'A' && currentRune <= 'Z',
			currentRune >= '0' && currentRune <= '9',
			strings.ContainsRune(identifierAllowedExtraRunesConstant, currentRune):
			identifierBuilder.WriteRune(currentRune)
		}
	}

	sanitizedIdentifier := identifierBuilder.String()
	if len(sanitizedIdentifier) == 0 {
		return fallbackIdentifierConstant
	}
	return sanitizedIdentifier
}

// identifierAllocator hands out run-unique identifiers, suffixing collisions numerically.
type identifierAllocator struct {
	allocatedIdentifiers map[string]bool
}

func newIdentifierAllocator() *identifierAllocator {
	return &identifierAllocator{allocatedIdentifiers: map[string]bool{}}
}

func (allocator *identifierAllocator) allocate(directoryName string) string {
	candidateIdentifier := SanitizeIdentifier(directoryName)
	if !allocator.allocatedIdentifiers[candidateIdentifier] {
		allocator.allocatedIdentifiers[candidateIdentifier] = true
		return candidateIdentifier
	}
	for suffixNumber := initialCollisionSuffixNumberConstant; ; suffixNumber++ {
		suffixedIdentifier := fmt.Sprintf(collisionSuffixTemplateConstant, candidateIdentifier, suffixNumber)
		if !allocator.allocatedIdentifiers[suffixedIdentifier] {
			allocator.allocatedIdentifiers[suffixedIdentifier] = true
			return suffixedIdentifier
		}
	}
}
