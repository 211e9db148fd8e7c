package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kpsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
databases:
  - name: personal
    path: /vaults/personal.kdbx
    keyfile: /keys/personal.keyx
    required: true
  - path: /vaults/work.kdbx
    create_missing: true
entries:
  - Github
  - Personal/Google
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Databases, 2)
	assert.Equal(t, "personal", cfg.Databases[0].Name)
	assert.Equal(t, "/keys/personal.keyx", cfg.Databases[0].KeyFile)
	assert.True(t, cfg.Databases[0].Required)

	// Name defaults to the file base without extension.
	assert.Equal(t, "work", cfg.Databases[1].Name)
	assert.True(t, cfg.Databases[1].CreateMissing)

	assert.Equal(t, []string{"Github", "Personal/Google"}, cfg.Entries)
}

func TestLoadExpandsPaths(t *testing.T) {
	t.Setenv("KPSYNC_TEST_DIR", "/vaults")
	path := writeConfig(t, `
databases:
  - path: $KPSYNC_TEST_DIR/a.kdbx
  - path: ~/b.kdbx
entries: [Github]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, "/vaults/a.kdbx", cfg.Databases[0].Path)
	assert.Equal(t, filepath.Join(home, "b.kdbx"), cfg.Databases[1].Path)
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "no entries",
			body: "databases:\n  - path: /a.kdbx\n",
			want: "no entries",
		},
		{
			name: "empty entry",
			body: "databases:\n  - path: /a.kdbx\nentries:\n  - Github\n  - '   '\n",
			want: "entry 2 is empty",
		},
		{
			name: "no databases",
			body: "entries: [Github]\n",
			want: "no databases",
		},
		{
			name: "database without path",
			body: "databases:\n  - name: oops\nentries: [Github]\n",
			want: "no path",
		},
		{
			name: "duplicate names",
			body: "databases:\n  - path: /x/db.kdbx\n  - path: /y/db.kdbx\nentries: [Github]\n",
			want: "duplicate database name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseDBOverride(t *testing.T) {
	db, err := ParseDBOverride("/vaults/personal.kdbx")
	require.NoError(t, err)
	assert.Equal(t, Database{Name: "personal", Path: "/vaults/personal.kdbx"}, db)

	db, err = ParseDBOverride("/vaults/work.kdbx:/keys/work.keyx")
	require.NoError(t, err)
	assert.Equal(t, "/keys/work.keyx", db.KeyFile)

	_, err = ParseDBOverride(":/keys/work.keyx")
	assert.Error(t, err)
	_, err = ParseDBOverride("/vaults/work.kdbx:")
	assert.Error(t, err)
}

func TestApplyDBOverrides(t *testing.T) {
	cfg := &Config{
		Databases: []Database{{Name: "configured", Path: "/x.kdbx"}},
		Entries:   []string{"Github"},
	}

	require.NoError(t, cfg.ApplyDBOverrides([]string{
		"/a/db.kdbx",
		"/b/db.kdbx:/keys/b.keyx",
	}))

	require.Len(t, cfg.Databases, 2)
	assert.Equal(t, "db", cfg.Databases[0].Name)
	// Repeated base names get a numeric suffix.
	assert.Equal(t, "db-2", cfg.Databases[1].Name)
	assert.Equal(t, "/keys/b.keyx", cfg.Databases[1].KeyFile)
	assert.Equal(t, []string{"Github"}, cfg.Entries)
}

func TestApplyDBOverridesNoopWhenEmpty(t *testing.T) {
	cfg := &Config{Databases: []Database{{Name: "keep", Path: "/x.kdbx"}}}
	require.NoError(t, cfg.ApplyDBOverrides(nil))
	assert.Equal(t, "keep", cfg.Databases[0].Name)
}

func TestWriteStarterRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "kpsync.yaml")

	require.NoError(t, WriteStarter(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Databases)
	assert.NotEmpty(t, cfg.Entries)

	// Never clobber an existing file.
	assert.Error(t, WriteStarter(path))
}

func TestLoosePermissions(t *testing.T) {
	dir := t.TempDir()

	tight := filepath.Join(dir, "tight.kdbx")
	require.NoError(t, os.WriteFile(tight, []byte("x"), 0600))
	loose, err := LoosePermissions(tight)
	require.NoError(t, err)
	assert.False(t, loose)

	open := filepath.Join(dir, "open.kdbx")
	require.NoError(t, os.WriteFile(open, []byte("x"), 0644))
	loose, err = LoosePermissions(open)
	require.NoError(t, err)
	assert.True(t, loose)

	_, err = LoosePermissions(filepath.Join(dir, "absent"))
	assert.Error(t, err)
}
