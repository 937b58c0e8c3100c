package util

import (
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestWaitUntil(t *testing.T) {
	assert.True(t, WaitUntil(func() bool { return true }, 100*time.Millisecond))
	assert.False(t, WaitUntil(func() bool { return false }, 50*time.Millisecond))
}

func TestStringContains(t *testing.T) {
	assert.True(t, StringContains([]string{"a", "B"}, "b"))
	assert.False(t, StringContains([]string{"a", "b"}, "c"))
}
