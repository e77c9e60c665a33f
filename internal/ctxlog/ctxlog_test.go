package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("returns the stored logger", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := WithLogger(context.Background(), logger)

		Stage(ctx, "plan").Info("Build planned.")

		assert.Same(t, logger, FromContext(ctx))
		assert.Contains(t, buf.String(), "stage=plan")
	})

	t.Run("falls back to the default logger", func(t *testing.T) {
		t.Parallel()

		assert.NotPanics(t, func() {
			assert.NotNil(t, FromContext(context.Background()))
		})
	})
}
