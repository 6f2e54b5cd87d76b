package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require := require.New(t)

	for _, l := range []string{"ERROR", "warning", "Notice", "INFO", "debug"} {
		_, err := ParseLevel(l)
		require.NoError(err, l)
	}
	_, err := ParseLevel("LOUD")
	require.Error(err)
}

func TestLevelFiltering(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	b, err := NewWriter(&buf, "NOTICE")
	require.NoError(err)

	l := b.GetLogger("mailbox")
	l.Debugf("hidden %d", 1)
	l.Noticef("stored %d", 2)

	out := buf.String()
	require.NotContains(out, "hidden")
	require.Contains(out, "NOTI mailbox: stored 2")
}

func TestGoLogger(t *testing.T) {
	var buf bytes.Buffer
	b, err := NewWriter(&buf, "DEBUG")
	require.NoError(t, err)

	b.GetGoLogger("metrics", "WARNING").Printf("listener: %s", "closed")
	require.Contains(t, buf.String(), "WARN metrics: listener: closed")
}

func TestFileAndRotate(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "server.log")
	b, err := New(path, "INFO", false)
	require.NoError(err)

	b.GetLogger("server").Info("before")
	require.NoError(os.Rename(path, path+".1"))
	require.NoError(b.Rotate())
	b.GetLogger("server").Info("after")

	old, err := os.ReadFile(path + ".1")
	require.NoError(err)
	require.Contains(string(old), "before")

	cur, err := os.ReadFile(path)
	require.NoError(err)
	require.Contains(string(cur), "after")
	require.NotContains(string(cur), "before")
}

func TestDisabled(t *testing.T) {
	b, err := New("", "DEBUG", true)
	require.NoError(t, err)
	b.GetLogger("server").Error("dropped")
}
