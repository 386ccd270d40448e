package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("gesture emitted")
	assert.True(t, called, "custom logger should receive log calls")

	called = false
	SetLogger(nil)
	Logf("gesture emitted")
	assert.False(t, called, "nil logger should mute the stream")
}

func TestLogfDefault(t *testing.T) {
	assert.NotNil(t, Logf)
}
