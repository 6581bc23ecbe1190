package assist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	runner := NewScriptRunner(nil)

	res, err := runner.Run(context.Background(), "echo", []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Stdout, "trailing newline is trimmed")
	assert.Equal(t, 0, res.Code)
}

func TestRunReportsExitCodeWithoutError(t *testing.T) {
	runner := NewScriptRunner(nil)

	res, err := runner.Run(context.Background(), "sh", []string{"-c", "exit 3"})
	require.NoError(t, err, "a non-zero exit is a result, not an error")
	assert.Equal(t, 3, res.Code)
}

func TestRunMissingBinary(t *testing.T) {
	runner := NewScriptRunner(nil)

	res, err := runner.Run(context.Background(), "definitely-not-a-binary-xyz", nil)
	require.Error(t, err)
	assert.Equal(t, -1, res.Code)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	runner := NewScriptRunner(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, "sleep", []string{"10"})
	assert.Error(t, err)
}
