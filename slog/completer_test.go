package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/mock"
	rslog "github.com/fwojciec/refdex/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingCompleter_Complete(t *testing.T) {
	t.Parallel()

	t.Run("logs prompt and response sizes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Completer{
			CompleteFn: func(context.Context, string) (string, error) {
				return "Retriever, Memory", nil
			},
		}

		completer := rslog.NewLoggingCompleter(inner, logger)
		out, err := completer.Complete(context.Background(), "extract keywords")

		require.NoError(t, err)
		assert.Equal(t, "Retriever, Memory", out)
		output := buf.String()
		assert.Contains(t, output, "msg=complete")
		assert.Contains(t, output, "prompt_runes=16")
		assert.Contains(t, output, "response_runes=17")
		assert.Contains(t, output, "duration=")
	})

	t.Run("logs and returns the error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Completer{
			CompleteFn: func(context.Context, string) (string, error) {
				return "", errors.New("model not loaded")
			},
		}

		_, err := rslog.NewLoggingCompleter(inner, logger).Complete(context.Background(), "describe")

		require.Error(t, err)
		assert.Contains(t, buf.String(), "err=\"model not loaded\"")
	})
}

func TestLoggingResolver_Resolve(t *testing.T) {
	t.Parallel()

	t.Run("logs status and counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Resolver{
			ResolveFn: func(_ context.Context, question string) (*refdex.Resolution, error) {
				return &refdex.Resolution{
					Question: question,
					Keywords: []string{"memory", "retriever"},
					URLs:     []string{"https://ref.example.com/memory.html"},
					Status:   refdex.StatusMatched,
				}, nil
			},
		}

		res, err := rslog.NewLoggingResolver(inner, logger).Resolve(context.Background(), "memory?")

		require.NoError(t, err)
		assert.Equal(t, refdex.StatusMatched, res.Status)
		output := buf.String()
		assert.Contains(t, output, "msg=resolve")
		assert.Contains(t, output, "question=memory?")
		assert.Contains(t, output, "status=matched")
		assert.Contains(t, output, "keywords=2")
		assert.Contains(t, output, "urls=1")
	})

	t.Run("logs error without a resolution", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Resolver{
			ResolveFn: func(context.Context, string) (*refdex.Resolution, error) {
				return nil, errors.New("database closed")
			},
		}

		_, err := rslog.NewLoggingResolver(inner, logger).Resolve(context.Background(), "memory?")

		require.Error(t, err)
		output := buf.String()
		assert.Contains(t, output, "err=\"database closed\"")
		assert.NotContains(t, output, "status=")
	})
}
