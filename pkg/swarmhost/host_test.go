package swarmhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAllDefaultsWhenUnset(t *testing.T) {
	t.Setenv(EnvHostnames, "")
	assert.Equal(t, []string{"localhost"}, GetAll())
}

func TestGetAllSplitsAndDropsEmptyFragments(t *testing.T) {
	t.Setenv(EnvHostnames, "h1,,h2,h3,")
	assert.Equal(t, []string{"h1", "h2", "h3"}, GetAll())
}

func TestGetAllPreservesOrder(t *testing.T) {
	t.Setenv(EnvHostnames, "c,a,b")
	assert.Equal(t, []string{"c", "a", "b"}, GetAll())
}

func TestGetLocalReturnsNonEmpty(t *testing.T) {
	name, err := GetLocal()
	assert.NoError(t, err)
	assert.NotEmpty(t, name)
}
