package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/odvcencio/tinygot/pkg/repo"
	"github.com/odvcencio/tinygot/pkg/transfer"
)

// cli is the configuration and logger shared by the commands of one root
// command.
type cli struct {
	v   *viper.Viper
	log *zap.Logger
}

func newCLI() *cli {
	v := viper.New()
	v.SetEnvPrefix("GOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("repo", ".")
	v.SetDefault("log_level", "warn")
	v.SetDefault("concurrency", transfer.DefaultConcurrency)
	v.SetDefault("cache_size", -1)
	return &cli{v: v}
}

func (c *cli) initConfig(cmd *cobra.Command) error {
	if cfg, _ := cmd.Flags().GetString("config"); cfg != "" {
		c.v.SetConfigFile(cfg)
	} else {
		c.v.AddConfigPath(configDir())
		c.v.SetConfigName("config")
		c.v.SetConfigType("yaml")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	log, err := newLogger(c.v.GetString("log_level"), c.v.GetBool("verbose"))
	if err != nil {
		return err
	}
	c.log = log
	return nil
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "got")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "got")
	}
	return ".got-cli"
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// logger returns the CLI logger, or a no-op logger before initConfig ran.
func (c *cli) logger() *zap.Logger {
	if c.log == nil {
		return zap.NewNop()
	}
	return c.log
}

func (c *cli) openRepo() (*repo.Repo, error) {
	opts := []repo.Option{repo.WithLogger(c.logger())}
	if n := c.v.GetInt("cache_size"); n >= 0 {
		opts = append(opts, repo.WithCacheSize(n))
	}
	return repo.Open(c.v.GetString("repo"), opts...)
}

func (c *cli) transferOptions() []transfer.Option {
	opts := []transfer.Option{transfer.WithLogger(c.logger())}
	if n := c.v.GetInt("concurrency"); n > 0 {
		opts = append(opts, transfer.WithConcurrency(n))
	}
	return opts
}
