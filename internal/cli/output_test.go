package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	plain := NewExitError(ExitCommandError, "bad flags")
	assert.Equal(t, "bad flags", plain.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(plain))

	cause := errors.New("disk full")
	wrapped := WrapExitError(ExitFailure, "commit failed", cause)
	assert.Equal(t, "commit failed: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
}

func TestGetExitCode_PlainErrorDefaultsToFailure(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("anything")))
}

func TestGetExitCode_WrappedExitError(t *testing.T) {
	inner := NewExitError(ExitCommandError, "inner")
	outer := fmt.Errorf("context: %w", inner)
	assert.Equal(t, ExitCommandError, GetExitCode(outer))
}

func TestOutputFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Emit(map[string]any{"ok": true}, func(io.Writer) error {
		t.Fatal("text renderer must not run in json mode")
		return nil
	}))
	assert.JSONEq(t, `{"ok": true}`, buf.String())
}

func TestOutputFormatter_Text(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Emit(nil, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "human words")
		return err
	}))
	assert.Equal(t, "human words\n", buf.String())
}
