package randomid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelinerl/runtrack/internal/randomid"
)

func TestNew_Length(t *testing.T) {
	assert.Len(t, randomid.New(8), 8)
	assert.Len(t, randomid.New(16), 16)
}

func TestNew_LowercaseAlphanumeric(t *testing.T) {
	id := randomid.New(64)

	for _, c := range id {
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		assert.True(t, isLower || isDigit, "unexpected character %q", c)
	}
}
