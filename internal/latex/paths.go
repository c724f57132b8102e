// Package latex assembles the PDF build pipeline: it derives artifact paths,
// filters artifacts by edition, and wires the transform, render, deploy, and
// link stage groups onto a task graph.
package latex

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/pdfbuilder/internal/config"
)

// Artifact holds every path one PDF artifact touches during a build. It is
// derived once at graph-build time and never mutated.
type Artifact struct {
	Name       string // declared output filename, e.g. "manual.tex"
	Source     string // tex file emitted by the generator
	Processed  string // munged tex file
	Rendered   string // pdf produced next to the processed tex
	Deployed   string // branch-qualified pdf in the public site output
	Link       string // stable name symlinked to the deployed pdf
	DeployName string // basename of Deployed, used as the link target
	WorkingDir string
}

// HasLink reports whether a link unit applies: no link is created when the
// stable name and the deployed name coincide.
func (a Artifact) HasLink() bool { return a.Link != a.Deployed }

// LatexDir returns the directory the generator writes tex files into. Edition
// builds write to a "<builder>-<edition>" sibling directory.
func LatexDir(cfg *config.Config) string {
	builder := cfg.Builder.Name
	if cfg.Project.Edition != "" && cfg.Project.Edition != cfg.Project.Name {
		builder = builder + "-" + cfg.Project.Edition
	}
	return filepath.Join(cfg.Paths.ProjectRoot, cfg.Paths.BranchOutput, builder)
}

// DeployDir returns the public site output directory.
func DeployDir(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.ProjectRoot, cfg.Paths.PublicSiteOutput)
}

// NewArtifact derives all paths for one declared PDF from its output name and
// tag plus the current branch.
func NewArtifact(spec config.PDFSpec, branch, latexDir, deployDir string) Artifact {
	tagged := strings.TrimSuffix(spec.Output, ".tex") + "-" + spec.Tag
	deployName := tagged + ".pdf"
	linkName := deployName
	if branch != "" {
		deployName = tagged + "-" + branch + ".pdf"
	}

	return Artifact{
		Name:       spec.Output,
		Source:     filepath.Join(latexDir, spec.Output),
		Processed:  filepath.Join(latexDir, tagged+".tex"),
		Rendered:   filepath.Join(latexDir, tagged+".pdf"),
		Deployed:   filepath.Join(deployDir, deployName),
		Link:       filepath.Join(deployDir, linkName),
		DeployName: deployName,
		WorkingDir: latexDir,
	}
}
