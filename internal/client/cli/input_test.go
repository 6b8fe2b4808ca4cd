package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPIN(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(fd int) ([]byte, error) { return []byte(" 1234 \n"), nil }
	var out bytes.Buffer
	pin, err := GetPIN(&out)
	require.NoError(t, err)
	assert.Equal(t, "1234", pin)
	assert.Contains(t, out.String(), "Enter PIN: ")

	readPassword = func(fd int) ([]byte, error) { return nil, errors.New("no tty") }
	_, err = GetPIN(&out)
	require.EqualError(t, err, "no tty")
}
