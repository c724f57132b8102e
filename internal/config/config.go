// Package config holds the build configuration model: project paths, the
// current branch, asset declarations, and the PDF artifact list.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Project ProjectConfig `yaml:"project"`
	Git     GitConfig     `yaml:"git"`
	Builder BuilderConfig `yaml:"builder"`
	Assets  []Asset       `yaml:"assets,omitempty"`
	PDFs    []PDFSpec     `yaml:"pdfs,omitempty"`
	Build   BuildConfig   `yaml:"build"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// PathsConfig locates the project tree and its output directories.
type PathsConfig struct {
	ProjectRoot      string `yaml:"project_root"`
	BranchOutput     string `yaml:"branch_output"`      // relative to project_root
	PublicSiteOutput string `yaml:"public_site_output"` // relative to project_root
}

// ProjectConfig describes the documentation project being built.
type ProjectConfig struct {
	Name    string `yaml:"name"`
	Tag     string `yaml:"tag"`
	URL     string `yaml:"url,omitempty"`
	Edition string `yaml:"edition,omitempty"`
}

// GitConfig carries the branch the build runs against.
type GitConfig struct {
	Branch string `yaml:"branch"`
}

// BuilderConfig names the upstream generator whose output we post-process and
// the build-variant tags in effect (e.g. "offset" selects dvi rendering).
type BuilderConfig struct {
	Name string   `yaml:"name"`
	Tags []string `yaml:"tags,omitempty"`
}

// HasTag reports whether the build variant tag is set.
func (b BuilderConfig) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Asset is an externally hosted content source synchronized into the project tree.
type Asset struct {
	Path       string `yaml:"path"` // relative to project_root
	Branch     string `yaml:"branch,omitempty"`
	Repository string `yaml:"repository"`
}

// PDFSpec declares one PDF artifact to produce.
type PDFSpec struct {
	Output   string   `yaml:"output"` // tex filename emitted by the generator
	Tag      string   `yaml:"tag"`
	Editions []string `yaml:"editions,omitempty"` // empty = all editions
}

// BuildConfig tunes pipeline execution.
type BuildConfig struct {
	Workers  int         `yaml:"workers,omitempty"`
	Schedule Duration    `yaml:"schedule,omitempty"` // daemon build interval
	Retry    RetryConfig `yaml:"retry,omitempty"`
}

// RetryConfig configures backoff for transient sync failures.
type RetryConfig struct {
	Mode       string   `yaml:"mode,omitempty"` // fixed|linear|exponential
	Initial    Duration `yaml:"initial,omitempty"`
	Max        Duration `yaml:"max,omitempty"`
	MaxRetries int      `yaml:"max_retries,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint in daemon mode.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath) // #nosec G304 - path supplied by operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Paths.ProjectRoot == "" {
		c.Paths.ProjectRoot = "."
	}
	if c.Paths.BranchOutput == "" {
		c.Paths.BranchOutput = filepath.Join("build", "master")
	}
	if c.Paths.PublicSiteOutput == "" {
		c.Paths.PublicSiteOutput = filepath.Join("build", "public")
	}
	if c.Git.Branch == "" {
		c.Git.Branch = "master"
	}
	if c.Builder.Name == "" {
		c.Builder.Name = "latex"
	}
	if c.Build.Workers <= 0 {
		c.Build.Workers = 0 // executor picks NumCPU
	}
	for i := range c.Assets {
		if c.Assets[i].Branch == "" {
			c.Assets[i].Branch = c.Git.Branch
		}
	}
}

// Validate rejects configurations that would only fail later at run time.
// Pattern and path problems surface here, at load time, never mid-pipeline.
func (c *Config) Validate() error {
	if c.Project.Name == "" {
		return fmt.Errorf("config: project.name is required")
	}
	seen := make(map[string]struct{}, len(c.Assets))
	for _, a := range c.Assets {
		if a.Path == "" {
			return fmt.Errorf("config: asset with repository %q has no path", a.Repository)
		}
		if a.Repository == "" {
			return fmt.Errorf("config: asset %q has no repository", a.Path)
		}
		if _, dup := seen[a.Path]; dup {
			return fmt.Errorf("config: duplicate asset path %q", a.Path)
		}
		seen[a.Path] = struct{}{}
	}
	for _, p := range c.PDFs {
		if !strings.HasSuffix(p.Output, ".tex") {
			return fmt.Errorf("config: pdf output %q must be a .tex file", p.Output)
		}
		for _, e := range p.Editions {
			if strings.TrimSpace(e) == "" {
				return fmt.Errorf("config: pdf %q has an empty edition constraint", p.Output)
			}
		}
	}
	return nil
}
