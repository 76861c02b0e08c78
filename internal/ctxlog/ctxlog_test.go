package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Run("returns the embedded logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := WithLogger(context.Background(), logger)

		FromContext(ctx).Info("hello")
		assert.Same(t, logger, FromContext(ctx))
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("falls back to the default logger", func(t *testing.T) {
		assert.Same(t, slog.Default(), FromContext(context.Background()))
	})
}
