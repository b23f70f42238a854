package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "temp_metadata", s.WorkDir)
	assert.Equal(t, "metadata_deployable.zip", s.ArchivePath)
	assert.Equal(t, "57.0", s.APIVersion)
	assert.Equal(t, "__c", s.ObjectSuffix)
	assert.Equal(t, ":5000", s.Server.Addr)
	assert.Equal(t, PublishDeploy, s.Publish)
	assert.Equal(t, ProviderConversation, s.Assistant.Provider)
	assert.Equal(t, 5*time.Minute, s.Timeout)
	assert.True(t, s.CleanWorkDir)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
work_dir: build/meta
api_version: "60.0"
publish: git
git:
  repo_dir: /srv/repo
  branch: feature/meta
assistant:
  provider: gemini
  model: gemini-2.0-flash
timeout: 30s
`), 0o644))
	t.Setenv("METADEPLOY_ASSISTANT_API_KEY", "from-env")
	t.Setenv("METADEPLOY_API_VERSION", "61.0")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "build/meta", s.WorkDir)
	assert.Equal(t, "61.0", s.APIVersion, "env beats file")
	assert.Equal(t, PublishGit, s.Publish)
	assert.Equal(t, "/srv/repo", s.Git.RepoDir)
	assert.Equal(t, "feature/meta", s.Git.Branch)
	assert.Equal(t, "origin", s.Git.Remote)
	assert.Equal(t, ProviderGemini, s.Assistant.Provider)
	assert.Equal(t, "from-env", s.Assistant.APIKey)
	assert.Equal(t, 30*time.Second, s.Timeout)
}

func TestLoad_MissingNamedFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Settings {
		return Settings{
			WorkDir:     "w",
			ArchivePath: "a.zip",
			Publish:     PublishDeploy,
			Assistant:   Assistant{Provider: ProviderConversation},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{name: "valid", mutate: func(s *Settings) {}},
		{name: "publish none", mutate: func(s *Settings) { s.Publish = PublishNone }},
		{name: "unknown publish", mutate: func(s *Settings) { s.Publish = "ftp" }, wantErr: true},
		{name: "git without repo", mutate: func(s *Settings) { s.Publish = PublishGit }, wantErr: true},
		{name: "unknown provider", mutate: func(s *Settings) { s.Assistant.Provider = "x" }, wantErr: true},
		{name: "empty work dir", mutate: func(s *Settings) { s.WorkDir = "" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBundleOptions(t *testing.T) {
	s := Settings{WorkDir: "w", ArchivePath: "a.zip", CleanWorkDir: true}
	assert.Len(t, s.BundleOptions(), 6)
	s.CleanWorkDir = false
	assert.Len(t, s.BundleOptions(), 5)
}
