package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSpinnerQuietRunsDirectly(t *testing.T) {
	ran := false
	err := WithSpinner(true, "working", func() error {
		ran = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestWithSpinnerPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := WithSpinner(true, "working", func() error { return boom })

	assert.ErrorIs(t, err, boom)
}
