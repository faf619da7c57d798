package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fuchsia-dev/compograph/pkg/env"
	"github.com/fuchsia-dev/compograph/pkg/fpm"
)

// fpmURLEnv overrides the package manager URL without a flag.
const fpmURLEnv = "FPM_URL"

// config is the optional YAML config file. Flags win over the file.
type config struct {
	Listen      string   `yaml:"listen"`
	FPMURL      string   `yaml:"fpm_url"`
	PackagesDir string   `yaml:"packages_dir"`
	CacheTTL    duration `yaml:"cache_ttl"`
}

// duration decodes Go duration strings like "2m" from YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = duration(parsed)
	return nil
}

func loadConfig(path string) (*config, error) {
	cfg := &config{}
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return cfg, nil
}

// sourceParams are the flags shared by every command that needs a package
// source.
type sourceParams struct {
	configFile  string
	fpmURL      string
	packagesDir string
	cacheTTL    time.Duration
	verbosity   int
}

func (p *sourceParams) addFlagsTo(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.configFile, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&p.fpmURL, "fpm-url", "", "base URL of the package manager JSON API (env "+fpmURLEnv+")")
	cmd.Flags().StringVarP(&p.packagesDir, "packages-dir", "d", "", "directory of package manifests (default $"+env.RootDirEnv+"/packages)")
	cmd.Flags().DurationVar(&p.cacheTTL, "cache-ttl", 0, "how long to memoize package metadata")
	cmd.Flags().CountVarP(&p.verbosity, "verbose", "v", "increase log verbosity (-v, -vv)")
}

// resolve picks the package source: an API client when a package manager URL
// is known (flag, then env, then config file), otherwise a local manifest
// directory (flag, then config file, then $FUCHSIA_DIR/packages).
func (p *sourceParams) resolve(ctx context.Context) (fpm.PackageManager, error) {
	cfg, err := loadConfig(p.configFile)
	if err != nil {
		return nil, err
	}

	fpmURL := p.fpmURL
	if fpmURL == "" {
		fpmURL = os.Getenv(fpmURLEnv)
	}
	if fpmURL == "" {
		fpmURL = cfg.FPMURL
	}
	if fpmURL != "" {
		var opts []fpm.Option
		if ttl := firstDuration(p.cacheTTL, time.Duration(cfg.CacheTTL)); ttl > 0 {
			opts = append(opts, fpm.WithCacheTTL(ttl))
		}
		return fpm.NewClient(fpmURL, opts...), nil
	}

	dir := p.packagesDir
	if dir == "" {
		dir = cfg.PackagesDir
	}
	if dir == "" {
		dir, err = env.PackagesDir()
		if err != nil {
			return nil, fmt.Errorf("no package source: pass --fpm-url or --packages-dir, or set %s: %w", env.RootDirEnv, err)
		}
	}

	return fpm.LoadDir(ctx, os.DirFS(dir))
}

// listenAddr picks the serve address: flag, then config file, then default.
func (p *sourceParams) listenAddr(flagValue, fallback string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := loadConfig(p.configFile)
	if err != nil {
		return "", err
	}
	if cfg.Listen != "" {
		return cfg.Listen, nil
	}
	return fallback, nil
}

func firstDuration(ds ...time.Duration) time.Duration {
	for _, d := range ds {
		if d > 0 {
			return d
		}
	}
	return 0
}
