// Package config loads runtime settings from a YAML file, METADEPLOY_*
// environment variables and built-in defaults, in that order of precedence
// below explicit flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mrhapile/metadeploy/pkg/bundler"
)

const (
	configFileName = "metadeploy"
	configFileType = "yaml"
	envPrefix      = "METADEPLOY"
)

// Publish modes.
const (
	PublishDeploy = "deploy"
	PublishGit    = "git"
	PublishNone   = "none"
)

// Assistant providers.
const (
	ProviderConversation = "conversation"
	ProviderGemini       = "gemini"
)

// Settings is the decoded configuration threaded through every component.
type Settings struct {
	WorkDir      string        `mapstructure:"work_dir"`
	ArchivePath  string        `mapstructure:"archive_path"`
	APIVersion   string        `mapstructure:"api_version"`
	ObjectSuffix string        `mapstructure:"object_suffix"`
	Namespace    string        `mapstructure:"namespace"`
	CleanWorkDir bool          `mapstructure:"clean_work_dir"`
	Publish      string        `mapstructure:"publish"`
	Server       Server        `mapstructure:"server"`
	Assistant    Assistant     `mapstructure:"assistant"`
	Salesforce   Salesforce    `mapstructure:"salesforce"`
	Git          Git           `mapstructure:"git"`
	Log          Log           `mapstructure:"log"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

type Assistant struct {
	Provider     string `mapstructure:"provider"`
	Endpoint     string `mapstructure:"endpoint"`
	AssistantID  string `mapstructure:"assistant_id"`
	TokenURL     string `mapstructure:"token_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
}

type Salesforce struct {
	InstanceURL  string `mapstructure:"instance_url"`
	TokenURL     string `mapstructure:"token_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	StatusURL    string `mapstructure:"status_url"`
}

type Git struct {
	RepoDir string `mapstructure:"repo_dir"`
	Remote  string `mapstructure:"remote"`
	Branch  string `mapstructure:"branch"`
	Subdir  string `mapstructure:"subdir"`
	Author  string `mapstructure:"author"`
}

type Log struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("work_dir", bundler.DefaultWorkDir)
	v.SetDefault("archive_path", bundler.DefaultArchiveName)
	v.SetDefault("api_version", bundler.DefaultAPIVersion)
	v.SetDefault("object_suffix", bundler.DefaultObjectSuffix)
	v.SetDefault("namespace", bundler.DefaultNamespace)
	v.SetDefault("clean_work_dir", true)
	v.SetDefault("publish", PublishDeploy)
	v.SetDefault("timeout", 5*time.Minute)

	v.SetDefault("server.addr", ":5000")

	v.SetDefault("assistant.provider", ProviderConversation)
	v.SetDefault("assistant.endpoint", "")
	v.SetDefault("assistant.assistant_id", "")
	v.SetDefault("assistant.token_url", "")
	v.SetDefault("assistant.client_id", "")
	v.SetDefault("assistant.client_secret", "")
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.model", "gemini-2.5-flash")

	v.SetDefault("salesforce.instance_url", "")
	v.SetDefault("salesforce.token_url", "")
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.client_secret", "")
	v.SetDefault("salesforce.status_url", "")

	v.SetDefault("git.repo_dir", "")
	v.SetDefault("git.remote", "origin")
	v.SetDefault("git.branch", "metadeploy/metadata")
	v.SetDefault("git.subdir", "force-app/main/default")
	v.SetDefault("git.author", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
}

// New returns a Viper instance with defaults and environment binding. When
// path is empty ./metadeploy.yaml is read if present; a named file must exist.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// Decode unmarshals v into Settings and validates the result.
func Decode(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load is New followed by Decode.
func Load(path string) (*Settings, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// Validate checks enumerated values and the settings each mode needs.
func (s *Settings) Validate() error {
	if s.WorkDir == "" {
		return errors.New("work_dir must not be empty")
	}
	if s.ArchivePath == "" {
		return errors.New("archive_path must not be empty")
	}
	switch s.Publish {
	case PublishDeploy, PublishNone:
	case PublishGit:
		if s.Git.RepoDir == "" {
			return errors.New("git.repo_dir is required when publish is git")
		}
	default:
		return fmt.Errorf("unknown publish mode %q", s.Publish)
	}
	switch s.Assistant.Provider {
	case ProviderConversation, ProviderGemini:
	default:
		return fmt.Errorf("unknown assistant provider %q", s.Assistant.Provider)
	}
	return nil
}

// BundleOptions maps the settings onto bundler options.
func (s *Settings) BundleOptions() []bundler.Option {
	opts := []bundler.Option{
		bundler.WithWorkDir(s.WorkDir),
		bundler.WithArchivePath(s.ArchivePath),
		bundler.WithAPIVersion(s.APIVersion),
		bundler.WithObjectSuffix(s.ObjectSuffix),
		bundler.WithNamespace(s.Namespace),
	}
	if s.CleanWorkDir {
		opts = append(opts, bundler.WithCleanWorkDir())
	}
	return opts
}
