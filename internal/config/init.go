package config

import (
	"fmt"
	"os"
)

const exampleConfig = `# pdfbuilder configuration
paths:
  project_root: .
  branch_output: build/master
  public_site_output: build/public

project:
  name: manual
  tag: manual
  url: https://docs.example.com
  # edition: saas

git:
  branch: master

builder:
  name: latex
  # tags: [offset]   # offset builds use EPS images and render via dvi

assets:
  - path: assets/figures
    repository: https://git.example.com/docs/figures.git
    branch: master

pdfs:
  - output: manual.tex
    tag: manual
  #  editions: [saas]

build:
  workers: 4
  # schedule: 30m    # daemon build interval
  retry:
    mode: linear
    initial: 1s
    max: 30s
    max_retries: 2

metrics:
  enabled: false
  listen: :9090
`

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
