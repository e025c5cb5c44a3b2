package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config stores repository-local settings such as named remotes.
//
//	[core]
//	default_branch = "main"
//	cache_size = 256
//
//	[remotes]
//	origin = "/srv/repos/project"
type Config struct {
	Core    CoreConfig        `toml:"core"`
	Remotes map[string]string `toml:"remotes"`
}

type CoreConfig struct {
	DefaultBranch string `toml:"default_branch"`
	CacheSize     int    `toml:"cache_size,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Core:    CoreConfig{DefaultBranch: DefaultBranch},
		Remotes: make(map[string]string),
	}
}

func configPath(gotDir string) string {
	return filepath.Join(gotDir, "config.toml")
}

// ReadConfig reads .got/config.toml. Missing config returns the defaults.
func (r *Repo) ReadConfig() (*Config, error) {
	return readConfig(r.GotDir)
}

// WriteConfig atomically writes .got/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	return writeConfig(r.GotDir, cfg)
}

func readConfig(gotDir string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(configPath(gotDir), cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}
	if cfg.Core.DefaultBranch == "" {
		cfg.Core.DefaultBranch = DefaultBranch
	}
	return cfg, nil
}

func writeConfig(gotDir string, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}

	tmp, err := os.CreateTemp(gotDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, configPath(gotDir)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// SetRemote stores/updates a named remote root in repository config.
func (r *Repo) SetRemote(name, root string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("set remote: remote name is required")
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return fmt.Errorf("set remote: remote path is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("set remote: %w", err)
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	cfg.Remotes[name] = abs
	return r.WriteConfig(cfg)
}

// RemoveRemote deletes a named remote from repository config.
func (r *Repo) RemoveRemote(name string) error {
	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	if _, ok := cfg.Remotes[name]; !ok {
		return fmt.Errorf("remote %q is not configured", name)
	}
	delete(cfg.Remotes, name)
	return r.WriteConfig(cfg)
}

// RemotePath returns the configured root for the given remote name.
func (r *Repo) RemotePath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("remote name is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	root, ok := cfg.Remotes[name]
	if !ok || strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("remote %q is not configured", name)
	}
	return root, nil
}

// RemoteNames returns the configured remote names in sorted order.
func (r *Repo) RemoteNames() ([]string, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cfg.Remotes))
	for name := range cfg.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
