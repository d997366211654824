package gemini_test

import (
	"context"
	"testing"

	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleter_Complete_ReturnsErrorWhenPromptEmpty(t *testing.T) {
	t.Parallel()

	completer := gemini.NewCompleter(nil, "", 0.1) // nil client ok for this test

	_, err := completer.Complete(context.Background(), "")

	require.Error(t, err)
	assert.Equal(t, refdex.EINVALID, refdex.ErrorCode(err))
	assert.Contains(t, refdex.ErrorMessage(err), "prompt required")
}

func TestBuildConfig_SetsTemperature(t *testing.T) {
	t.Parallel()

	config := gemini.BuildConfig(0.1)

	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.1, *config.Temperature, 1e-6)
	assert.Nil(t, config.SystemInstruction)
}
