package targets_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/targets"
)

const (
	testStateDirectoryNameConstant = ".readme-batch"
	testDirectoryPermissions       = 0o755
)

func TestSanitizeIdentifier(testInstance *testing.T) {
	testCases := []struct {
		name               string
		directoryName      string
		expectedIdentifier string
	}{
		{
			name:               "plain_name",
			directoryName:      "hello-world",
			expectedIdentifier: "hello-world",
		},
		{
			name:               "strips_leading_dots",
			directoryName:      "..hidden-project",
			expectedIdentifier: "hidden-project",
		},
		{
			name:               "strips_special_characters",
			directoryName:      "my repo (copy)!",
			expectedIdentifier: "myrepocopy",
		},
		{
			name:               "preserves_underscores",
			directoryName:      "data_pipeline_v2",
			expectedIdentifier: "data_pipeline_v2",
		},
		{
			name:               "empty_falls_back",
			directoryName:      "...",
			expectedIdentifier: "unnamed-target",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedIdentifier, targets.SanitizeIdentifier(testCase.directoryName))
		})
	}
}

func TestDiscoverTargets(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	for _, directoryName := range []string{"beta-service", "alpha-service", testStateDirectoryNameConstant, ".hidden"} {
		require.NoError(testInstance, os.Mkdir(filepath.Join(rootDirectory, directoryName), testDirectoryPermissions))
	}
	require.NoError(testInstance, os.WriteFile(filepath.Join(rootDirectory, "stray-file.txt"), []byte("ignored"), 0o644))

	discoverer := targets.NewDiscoverer(testStateDirectoryNameConstant)
	discoveredTargets, discoveryError := discoverer.DiscoverTargets(rootDirectory)
	require.NoError(testInstance, discoveryError)
	require.Len(testInstance, discoveredTargets, 2)
	require.Equal(testInstance, "alpha-service", discoveredTargets[0].Identifier)
	require.Equal(testInstance, filepath.Join(rootDirectory, "alpha-service"), discoveredTargets[0].Path)
	require.Equal(testInstance, "beta-service", discoveredTargets[1].Identifier)
}

func TestDiscoverTargetsAssignsCollisionSuffixes(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	for _, directoryName := range []string{"service!", "service?"} {
		require.NoError(testInstance, os.Mkdir(filepath.Join(rootDirectory, directoryName), testDirectoryPermissions))
	}

	discoverer := targets.NewDiscoverer(testStateDirectoryNameConstant)
	discoveredTargets, discoveryError := discoverer.DiscoverTargets(rootDirectory)
	require.NoError(testInstance, discoveryError)
	require.Len(testInstance, discoveredTargets, 2)

	identifiers := []string{discoveredTargets[0].Identifier, discoveredTargets[1].Identifier}
	require.Contains(testInstance, identifiers, "service")
	require.Contains(testInstance, identifiers, "service-2")
}

func TestDiscoverTargetsValidation(testInstance *testing.T) {
	discoverer := targets.NewDiscoverer(testStateDirectoryNameConstant)

	_, emptyRootError := discoverer.DiscoverTargets("  ")
	require.ErrorIs(testInstance, emptyRootError, targets.ErrRootPathRequired)

	_, missingRootError := discoverer.DiscoverTargets(filepath.Join(testInstance.TempDir(), "does-not-exist"))
	require.Error(testInstance, missingRootError)
}
