package swarmargs

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresAtLeastTwoArgs(t *testing.T) {
	_, err := New([]string{"cc"})
	assert.Error(t, err)
}

func TestJoinRoundTripsThroughShell(t *testing.T) {
	v, err := New([]string{"cc", "-O2", "-DFOO='bar baz'", "-c", "foo.c"})
	require.NoError(t, err)

	out, err := exec.Command("sh", "-c", "for a in "+v.Join()+"; do echo \"[$a]\"; done").Output()
	require.NoError(t, err)

	assert.Contains(t, string(out), "[-DFOO='bar baz']")
}

func TestDeleteMatchingRemovesTokenAndFollowers(t *testing.T) {
	v, err := New([]string{"cc", "-MT", "foo.d", "-c", "foo.c"})
	require.NoError(t, err)

	require.NoError(t, v.DeleteMatching(`-MT`, 2))
	assert.Equal(t, []string{"-c", "foo.c"}, v.Tokens())
}

func TestDeleteMatchingNoMatchLeavesVectorIdentical(t *testing.T) {
	v, err := New([]string{"cc", "-O2", "-c", "foo.c"})
	require.NoError(t, err)
	before := v.Tokens()

	require.NoError(t, v.DeleteMatching("nonexistent", 1))
	assert.Equal(t, before, v.Tokens())
}

func TestDeleteMatchingDoesNotRematchInsideDeletedWindow(t *testing.T) {
	v, err := New([]string{"cc", "-MT", "-MT", "-c", "foo.c"})
	require.NoError(t, err)

	require.NoError(t, v.DeleteMatching(`-MT`, 2))
	assert.Equal(t, []string{"-c", "foo.c"}, v.Tokens())
}

func TestFirstMatchingReturnsEmptyWhenNoMatch(t *testing.T) {
	v, err := New([]string{"cc", "-c", "foo.c"})
	require.NoError(t, err)

	got, err := v.FirstMatching(`\.o$`, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFirstMatchingOutOfRangeErrors(t *testing.T) {
	v, err := New([]string{"cc", "-c", "foo.c"})
	require.NoError(t, err)

	_, err = v.FirstMatching(`foo\.c`, 5)
	assert.Error(t, err)
}

func TestSubstituteAllMatching(t *testing.T) {
	v, err := New([]string{"cc", "-c", "foo.c", "-o", "foo.o"})
	require.NoError(t, err)

	require.NoError(t, v.SubstituteAllMatching(`\.o$`, "/tmp/swarm/h/out/foo.o", 0))
	assert.Equal(t, "/tmp/swarm/h/out/foo.o", v.Last())
}

func TestLastAndAppend(t *testing.T) {
	v, err := New([]string{"cc", "-c", "foo.c"})
	require.NoError(t, err)

	assert.Equal(t, "foo.c", v.Last())
	v.Append("-E")
	assert.Equal(t, "-E", v.Last())
}

func TestCloneIsIndependent(t *testing.T) {
	v, err := New([]string{"cc", "-c", "foo.c"})
	require.NoError(t, err)

	clone := v.Clone()
	clone.Append("-E")

	assert.Equal(t, 2, v.Len())
	assert.Equal(t, 3, clone.Len())
}

func TestBareDashIPairIsDeletedConservatively(t *testing.T) {
	// -I matches both "-Iinclude" as a single token and bare "-I" as the
	// opening half of a two-token pair; the conservative rewriter
	// deletes both shapes rather than trying to disambiguate.
	v, err := New([]string{"cc", "-I", "include", "-Iother", "-c", "foo.c"})
	require.NoError(t, err)

	require.NoError(t, v.DeleteMatching(`(-MT)|(-MF)|(-include)|(-I$)`, 2))
	require.NoError(t, v.DeleteMatching(`(-D)|(-I)|(-M)`, 1))
	assert.Equal(t, []string{"-c", "foo.c"}, v.Tokens())
}
