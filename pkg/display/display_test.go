package display

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReportsSuccess(t *testing.T) {
	var buf bytes.Buffer
	called := false

	err := Run(&buf, "Uploading app.conf", func() error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, buf.String(), "Uploading app.conf done in")
}

func TestRunReportsFailure(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("permission denied")

	err := Run(&buf, "Downloading hosts", func() error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "Downloading hosts failed after")
	assert.Contains(t, buf.String(), "permission denied")
}

func TestNewSpinnerIsStoppable(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Waiting")
	assert.Equal(t, "Waiting ", s.Prefix)
	s.Stop()
}
