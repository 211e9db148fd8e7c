package prompt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	orig := readPassword
	readPassword = func(fd int) ([]byte, error) { return []byte("hunter2"), nil }
	defer func() { readPassword = orig }()

	var out bytes.Buffer
	pw, err := Password(&out, "/vaults/personal.kdbx")
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), pw)
	assert.Contains(t, out.String(), "/vaults/personal.kdbx")
}

func TestPasswordReadFailure(t *testing.T) {
	orig := readPassword
	readPassword = func(fd int) ([]byte, error) { return nil, errors.New("tty gone") }
	defer func() { readPassword = orig }()

	var out bytes.Buffer
	_, err := Password(&out, "x.kdbx")
	assert.ErrorContains(t, err, "failed to read password")
}

func TestWipe(t *testing.T) {
	pw := []byte("hunter2")
	Wipe(pw)
	assert.Equal(t, make([]byte, 7), pw)
}
