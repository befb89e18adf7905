package static

import (
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedAssetsExist(t *testing.T) {
	expected := []string{
		"css/airwave.css",
		"js/airwave.js",
	}

	var got []string
	err := fs.WalkDir(FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		// go:embed uses forward slashes regardless of OS.
		if strings.Contains(path, "\\") {
			return &fs.PathError{Op: "walk", Path: path, Err: fs.ErrInvalid}
		}
		if !strings.HasPrefix(path, "js/") && !strings.HasPrefix(path, "css/") {
			return &fs.PathError{Op: "walk", Path: path, Err: fs.ErrPermission}
		}

		got = append(got, path)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)
	require.Equal(t, expected, got)
}

func TestClientTargetsRelayEndpoints(t *testing.T) {
	src, err := fs.ReadFile(FS, "js/airwave.js")
	require.NoError(t, err)

	body := string(src)
	require.Contains(t, body, "/broadcast")
	require.Contains(t, body, "/listen")
	require.Contains(t, body, "binaryType = 'arraybuffer'")
}
