package dependencies_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kira-id/auto-readme-generator-in-batch/internal/dependencies"
)

func TestResolveShellExecutorBuildsExecutor(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		logger               *zap.Logger
		humanReadableLogging bool
	}{
		{name: "structured logging", logger: zap.NewNop()},
		{name: "console logging", logger: zap.NewNop(), humanReadableLogging: true},
		{name: "nil logger falls back to nop", logger: nil},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			executor, resolveError := dependencies.ResolveShellExecutor(testCase.logger, testCase.humanReadableLogging)
			require.NoError(subTest, resolveError)
			require.NotNil(subTest, executor)
		})
	}
}
