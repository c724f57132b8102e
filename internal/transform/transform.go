// Package transform applies ordered regex rewrite rules to generated source
// files. Rule tables are pure data compiled at startup, so a malformed
// pattern is a programming or configuration error, never a run-time one.
package transform

import (
	"fmt"
	"os"
	"regexp"

	"git.home.luguber.info/inful/pdfbuilder/internal/fsutil"
)

// Rule is a single pattern/replacement pair. Template supports $1-style group
// references. Unless, when set, suppresses the rewrite for any match that
// also matches it (the escape hatch for exclusions RE2 cannot express with
// lookahead).
type Rule struct {
	Pattern  *regexp.Regexp
	Template string
	Unless   *regexp.Regexp
}

// CopyPolicy controls whether ProcessFile rewrites an up-to-date destination.
type CopyPolicy string

const (
	CopyAlways   CopyPolicy = "always"
	CopyIfNeeded CopyPolicy = "ifNeeded"
)

// Error reports a failed file transformation.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string { return fmt.Sprintf("transform %s: %v", e.Source, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Apply runs each rule in order over the whole text; each rule operates on
// the output of the previous.
func Apply(text string, rules []Rule) string {
	for _, r := range rules {
		text = r.apply(text)
	}
	return text
}

func (r Rule) apply(text string) string {
	return r.Pattern.ReplaceAllStringFunc(text, func(match string) string {
		if r.Unless != nil && r.Unless.MatchString(match) {
			return match
		}
		idx := r.Pattern.FindStringSubmatchIndex(match)
		return string(r.Pattern.ExpandString(nil, r.Template, match, idx))
	})
}

// ProcessFile reads src, applies the rules, and writes the result to dst.
// Under CopyIfNeeded the write is skipped when dst already exists and is not
// older than src. The destination is replaced atomically: it is either fully
// rewritten or left untouched.
func ProcessFile(src, dst string, rules []Rule, policy CopyPolicy) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return &Error{Source: src, Err: err}
	}
	inPlace := src == dst
	if policy == CopyIfNeeded && !inPlace {
		if dstInfo, err := os.Stat(dst); err == nil && !dstInfo.ModTime().Before(srcInfo.ModTime()) {
			return nil
		}
	}

	data, err := os.ReadFile(src) // #nosec G304 - paths derived from build configuration
	if err != nil {
		return &Error{Source: src, Err: err}
	}

	out := Apply(string(data), rules)
	if policy == CopyIfNeeded && inPlace && out == string(data) {
		// Nothing changed; leave the mtime alone.
		return nil
	}

	if err := fsutil.WriteFileAtomic(dst, []byte(out), srcInfo.Mode().Perm()); err != nil {
		return &Error{Source: src, Err: fmt.Errorf("write %s: %w", dst, err)}
	}
	return nil
}
