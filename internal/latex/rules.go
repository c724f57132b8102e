package latex

import (
	"regexp"

	"git.home.luguber.info/inful/pdfbuilder/internal/transform"
)

// Rewrite rules for the tex the generator emits. Patterns are compiled at
// package init, so a malformed rule fails fast rather than mid-pipeline.
var (
	// Double dashes inside index and bfcode entries must not become en-dashes.
	doubleDashRule = transform.Rule{
		Pattern:  regexp.MustCompile(`(index|bfcode)\{(.*)--(.*)\}`),
		Template: `${1}{${2}-{-}${3}}`,
	}

	// The syntax highlighter's escaped single quote renders badly in print.
	singleQuoteRule = transform.Rule{
		Pattern:  regexp.MustCompile(`\\PYGZsq\{\}`),
		Template: `'`,
	}

	// Offset builds cannot use the pdftex graphicx driver.
	styGraphicxRule = transform.Rule{
		Pattern:  regexp.MustCompile(`\\usepackage\[pdftex\]\{graphicx\}`),
		Template: `\usepackage{graphicx}`,
	}

	// Absolute documentation paths are rewritten to site URLs, except real
	// filesystem paths and spans containing {} placeholders.
	codePathExclusions = regexp.MustCompile(`^\\code\{/(?:etc|usr|data|var|srv|bin|dev|opt|proc|24|private)|\{\}`)
)

// codePathRule rewrites \code{/...} spans to point at the published site for
// the project's URL and tag.
func codePathRule(url, tag string) transform.Rule {
	return transform.Rule{
		Pattern:  regexp.MustCompile(`\\code\{/(.*?)\}`),
		Template: `\code{` + url + `/` + tag + `/${1}}`,
		Unless:   codePathExclusions,
	}
}

// texRules returns the ordered rule table applied to every artifact's tex
// source before rendering.
func texRules(url, tag string) []transform.Rule {
	return []transform.Rule{
		doubleDashRule,
		singleQuoteRule,
		codePathRule(url, tag),
	}
}
