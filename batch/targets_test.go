package batch

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTargetIDs(t *testing.T) {
	input := `
# nightly batch
C-100
  C-200  

C-100
# C-300
C-400
`
	ids, err := ReadTargetIDs(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"C-100", "C-200", "C-400"}, ids)
}

func TestReadTargetIDs_Empty(t *testing.T) {
	ids, err := ReadTargetIDs(strings.NewReader("\n# nothing\n"))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReadTargetIDs_ReaderError(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := ReadTargetIDs(iotest.ErrReader(boom))
	assert.ErrorIs(t, err, boom)
}
