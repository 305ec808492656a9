package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInQuietWindow(t *testing.T) {
	// Daytime window 09:00-17:00.
	assert.True(t, inQuietWindow(9*60, 9*60, 17*60))
	assert.True(t, inQuietWindow(12*60, 9*60, 17*60))
	assert.False(t, inQuietWindow(17*60, 9*60, 17*60), "end is exclusive")
	assert.False(t, inQuietWindow(8*60, 9*60, 17*60))

	// Overnight window 22:00-07:00 crosses midnight.
	assert.True(t, inQuietWindow(23*60, 22*60, 7*60))
	assert.True(t, inQuietWindow(0, 22*60, 7*60))
	assert.True(t, inQuietWindow(6*60+59, 22*60, 7*60))
	assert.False(t, inQuietWindow(7*60, 22*60, 7*60))
	assert.False(t, inQuietWindow(12*60, 22*60, 7*60))
}
