package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUIDv7Unique(t *testing.T) {
	gen := UUIDv7()
	a, b := gen(), gen()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("run_", Sequential(""))
	assert.Equal(t, "run_1", gen())
	assert.Equal(t, "run_2", gen())
}

func TestSequential(t *testing.T) {
	gen := Sequential("job_")
	ids := []string{gen(), gen(), gen()}
	assert.Equal(t, []string{"job_1", "job_2", "job_3"}, ids)
}
