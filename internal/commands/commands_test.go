package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iTrooz/componentcache/internal/components"
)

// run executes the command line against a storage root in a temp dir and
// returns what was written to stdout.
func run(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("COMPONENTCACHE_STORAGE_ROOT", root)
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	var stdout, stderr bytes.Buffer
	app := NewRoot("test")
	app.Writer = &stdout
	app.ErrWriter = &stderr

	err := app.Run(context.Background(), append([]string{"componentcache"}, args...))
	return stdout.String(), err
}

func TestCacheCommands(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")

	_, err := run(t, root, "cache", "set", "profiles", "light", `{"max": 1810}`)
	require.NoError(t, err)
	_, err = run(t, root, "cache", "set", "--ttl", "0s", "profiles", "name", "Guardian")
	require.NoError(t, err)

	out, err := run(t, root, "cache", "get", "profiles", "light")
	require.NoError(t, err)
	assert.JSONEq(t, `{"max": 1810}`, out)

	out, err = run(t, root, "cache", "get", "profiles", "name")
	require.NoError(t, err)
	assert.JSONEq(t, `"Guardian"`, out)

	out, err = run(t, root, "cache", "inspect", "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "expires: never")
	assert.Contains(t, out, "light\t{\"max\":1810}")

	_, err = run(t, root, "cache", "get", "profiles", "missing")
	assert.Error(t, err)

	_, err = run(t, root, "cache", "get", "profiles")
	assert.Error(t, err)
}

func TestStorageCommands(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")

	_, err := run(t, root, "cache", "set", "vendors", "ada", "1")
	require.NoError(t, err)

	out, err := run(t, root, "storage", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "FILENAME")
	assert.Contains(t, out, "cache-vendors.json")

	_, err = run(t, root, "storage", "rm", "CACHE", "cache-vendors.json")
	require.NoError(t, err)

	out, err = run(t, root, "storage", "ls", "--namespace", "CACHE")
	require.NoError(t, err)
	assert.NotContains(t, out, "cache-vendors.json")

	_, err = run(t, root, "storage", "rm", "CACHE", "cache-vendors.json")
	assert.Error(t, err)
}

func TestFetchCommand(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/Destiny2/3/Profile/1/", r.URL.Path)
		assert.Equal(t, "100,200", r.URL.Query().Get("components"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"Response": {"profile": {}}, "ErrorCode": 1}`))
	}))
	defer server.Close()

	root := filepath.Join(t.TempDir(), "store")
	t.Setenv("COMPONENTCACHE_API_BASE_URL", server.URL)

	_, err := run(t, root, "session", "put", "--expires-in", "1h", "main", "tok")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		out, err := run(t, root, "fetch", "-s", "main", "-C", "Profiles", "-C", "200",
			"--cache-ns", "profiles", "Destiny2/3/Profile/1/")
		require.NoError(t, err)
		assert.JSONEq(t, `{"profile": {}}`, out)
	}
	assert.Equal(t, int32(1), hits.Load())

	_, err = run(t, root, "fetch", "-C", "Unknown", "Destiny2/3/Profile/1/")
	assert.Error(t, err)
}

func TestParseComponents(t *testing.T) {
	ids, err := parseComponents([]string{"Profiles,200", " 305 ", ""})
	require.NoError(t, err)
	assert.Equal(t, []components.ComponentID{components.Profiles, components.Characters, components.ItemSockets}, ids)
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://api/Platform/Destiny2/", resolveURL("https://api/Platform/", "/Destiny2/"))
	assert.Equal(t, "http://other/x", resolveURL("https://api/Platform", "http://other/x"))
}
