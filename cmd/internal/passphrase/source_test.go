package passphrase

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSource(env map[string]string, terminal bool, secret string, readErr error) (*Source, *int) {
	reads := 0
	src := NewSource("DEVTOKEN_KEYSTORE_PASSPHRASE")
	src.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	src.isTerminal = func() bool { return terminal }
	src.readSecret = func() ([]byte, error) {
		reads++
		return []byte(secret), readErr
	}
	src.out = &bytes.Buffer{}
	return src, &reads
}

func TestSourcePrefersEnvironment(t *testing.T) {
	src, reads := testSource(map[string]string{"DEVTOKEN_KEYSTORE_PASSPHRASE": " spaced "}, true, "ignored", nil)
	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, " spaced ", value)
	require.Zero(t, *reads)
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	src, _ := testSource(map[string]string{"DEVTOKEN_KEYSTORE_PASSPHRASE": "  "}, true, "x", nil)
	_, err := src.Get()
	require.ErrorContains(t, err, "set but empty")
}

func TestSourcePromptsOnceAndCaches(t *testing.T) {
	src, reads := testSource(nil, true, "from-terminal", nil)
	for i := 0; i < 3; i++ {
		value, err := src.Get()
		require.NoError(t, err)
		require.Equal(t, "from-terminal", value)
	}
	require.Equal(t, 1, *reads)
	require.Contains(t, src.out.(*bytes.Buffer).String(), "passphrase")
}

func TestSourceFailures(t *testing.T) {
	src, _ := testSource(nil, false, "", nil)
	_, err := src.Get()
	require.ErrorContains(t, err, "DEVTOKEN_KEYSTORE_PASSPHRASE")

	src, _ = testSource(nil, true, "   ", nil)
	_, err = src.Get()
	require.ErrorContains(t, err, "cannot be empty")

	src, _ = testSource(nil, true, "", errors.New("tty closed"))
	_, err = src.Get()
	require.ErrorContains(t, err, "tty closed")
}
