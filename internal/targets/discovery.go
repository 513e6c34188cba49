package targets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	rootPathRequiredMessageConstant     = "targets root path required"
	rootUnreadableErrorTemplateConstant = "reading targets root %s: %w"
	hiddenDirectoryPrefixConstant       = "."
)

// ErrRootPathRequired indicates discovery was invoked without a root directory.
var ErrRootPathRequired = errors.New(rootPathRequiredMessageConstant)

// Target identifies one repository directory selected for processing.
type Target struct {
	Path       string
	Identifier string
}

// Discoverer enumerates candidate repository directories under a configured root.
type Discoverer struct {
	stateDirectoryName string
}

// NewDiscoverer constructs a Discoverer excluding the named orchestrator state directory.
func NewDiscoverer(stateDirectoryName string) *Discoverer {
	return &Discoverer{stateDirectoryName: stateDirectoryName}
}

// DiscoverTargets lists the immediate subdirectories of the root, excluding the
// state directory and hidden directories, as a sorted duplicate-free target set.
func (discoverer *Discoverer) DiscoverTargets(rootPath string) ([]Target, error) {
	trimmedRoot := strings.TrimSpace(rootPath)
	if len(trimmedRoot) == 0 {
		return nil, ErrRootPathRequired
	}

	absoluteRoot, absoluteError := filepath.Abs(trimmedRoot)
	if absoluteError != nil {
		return nil, fmt.Errorf(rootUnreadableErrorTemplateConstant, trimmedRoot, absoluteError)
	}

	directoryEntries, readError := os.ReadDir(absoluteRoot)
	if readError != nil {
		return nil, fmt.Errorf(rootUnreadableErrorTemplateConstant, absoluteRoot, readError)
	}

	directoryNames := make([]string, 0, len(directoryEntries))
	seenNames := map[string]bool{}
	for _, directoryEntry := range directoryEntries {
		if !directoryEntry.IsDir() {
			continue
		}
		entryName := directoryEntry.Name()
		if entryName == discoverer.stateDirectoryName {
			continue
		}
		if strings.HasPrefix(entryName, hiddenDirectoryPrefixConstant) {
			continue
		}
		if seenNames[entryName] {
			continue
		}
		seenNames[entryName] = true
		directoryNames = append(directoryNames, entryName)
	}
	sort.Strings(directoryNames)

	allocator := newIdentifierAllocator()
	discoveredTargets := make([]Target, 0, len(directoryNames))
	for _, directoryName := range directoryNames {
		discoveredTargets = append(discoveredTargets, Target{
			Path:       filepath.Join(absoluteRoot, directoryName),
			Identifier: allocator.allocate(directoryName),
		})
	}
	return discoveredTargets, nil
}
