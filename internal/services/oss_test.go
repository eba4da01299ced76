package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewObjectPath(t *testing.T) {
	path := NewObjectPath(".png")
	assert.True(t, strings.HasPrefix(path, "/"))
	assert.True(t, strings.HasSuffix(path, ".png"))
	assert.NotContains(t, path, "-")

	// A bare suffix gets its dot.
	assert.True(t, strings.HasSuffix(NewObjectPath("pdf"), ".pdf"))
	assert.False(t, strings.Contains(NewObjectPath(""), "."))
}

func TestNewObjectPathIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		path := NewObjectPath(".bin")
		assert.False(t, seen[path])
		seen[path] = true
	}
}
