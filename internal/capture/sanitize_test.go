package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePathReplacesSlashesAndUnsafeChars(t *testing.T) {
	assert.Equal(t, "blog-post_1", SanitizePath("/blog/post 1"))
	assert.Equal(t, "index", SanitizePath("/"))
	assert.Equal(t, "index", SanitizePath(""))
}

func TestSanitizePathCollapsesRepeatedSeparators(t *testing.T) {
	assert.Equal(t, "a-b", SanitizePath("/a//b"))
	assert.Equal(t, "a_b", SanitizePath("/a  b"))
}

func TestSanitizePathStripsLeadingSlashes(t *testing.T) {
	assert.Equal(t, "about", SanitizePath("///about"))
}
