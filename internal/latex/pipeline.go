package latex

import (
	"context"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/pdfbuilder/internal/config"
	"git.home.luguber.info/inful/pdfbuilder/internal/fsutil"
	"git.home.luguber.info/inful/pdfbuilder/internal/logfields"
	"git.home.luguber.info/inful/pdfbuilder/internal/render"
	"git.home.luguber.info/inful/pdfbuilder/internal/task"
	"git.home.luguber.info/inful/pdfbuilder/internal/transform"
)

// Stage group names, in execution order.
const (
	StageTransform = "transform"
	StageRender    = "render"
	StageDeploy    = "deploy"
	StageLink      = "link"
)

// offsetTag marks a build variant that uses EPS images and must render
// through dvi.
const offsetTag = "offset"

// editionAllowed is the edition filter: an artifact with no edition
// constraints applies everywhere; otherwise the project edition must be
// listed.
func editionAllowed(spec config.PDFSpec, edition string) bool {
	if len(spec.Editions) == 0 {
		return true
	}
	for _, e := range spec.Editions {
		if e == edition {
			return true
		}
	}
	return false
}

// PDFTasks builds the four stage groups for every declared PDF onto root.
// Stage ordering is structural: the executor runs the groups in the order
// they are added, and units within one group are independent of each other.
func PDFTasks(cfg *config.Config, renderer *render.Renderer, root *task.Group) {
	if len(cfg.PDFs) == 0 {
		return
	}

	processGroup := root.AddGroup(StageTransform)
	renderGroup := root.AddGroup(StageRender)
	root.AddGroup(StageDeploy) // the render unit performs the deployed-path copy
	linkGroup := root.AddGroup(StageLink)

	latexDir := LatexDir(cfg)
	deployDir := DeployDir(cfg)
	rules := texRules(cfg.Project.URL, cfg.Project.Tag)

	format := render.FormatPDF
	if cfg.Builder.HasTag(offsetTag) {
		// Offset builds use EPS images: render via dvi and strip the pdftex
		// graphicx driver from the shared style file first.
		format = render.FormatDVI
		styFile := filepath.Join(latexDir, "sphinx.sty")
		processGroup.AddUnit(&task.Unit{
			Name: "munge sphinx.sty",
			Job: func(ctx context.Context) error {
				return transform.ProcessFile(styFile, styFile, []transform.Rule{styGraphicxRule}, transform.CopyIfNeeded)
			},
		})
	}

	for _, spec := range cfg.PDFs {
		if !editionAllowed(spec, cfg.Project.Edition) {
			slog.Debug("Artifact filtered out by edition", logfields.Artifact(spec.Output), slog.String("edition", cfg.Project.Edition))
			continue
		}
		a := NewArtifact(spec, cfg.Git.Branch, latexDir, deployDir)

		processGroup.AddUnit(&task.Unit{
			Name: "munge " + a.Name,
			Job: func(ctx context.Context) error {
				return transform.ProcessFile(a.Source, a.Processed, rules, transform.CopyIfNeeded)
			},
		})

		// Render is always attempted: it has no dependency gate.
		renderGroup.AddUnit(&task.Unit{
			Name:   "render " + a.Name,
			Target: a.Rendered,
			Job: func(ctx context.Context) error {
				return renderer.RenderToArtifact(ctx, a.Processed, a.Deployed, a.WorkingDir, format)
			},
		})

		if a.HasLink() {
			linkGroup.AddUnit(&task.Unit{
				Name:       "link " + a.Name,
				Dependency: a.Deployed,
				Target:     a.Link,
				Job: func(ctx context.Context) error {
					return fsutil.CreateLink(a.DeployName, a.Link)
				},
			})
		}
	}
}
