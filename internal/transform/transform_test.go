package transform

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApply_RulesRunInOrder(t *testing.T) {
	rules := []Rule{
		{Pattern: regexp.MustCompile(`a`), Template: `b`},
		{Pattern: regexp.MustCompile(`bb`), Template: `c`},
	}
	// The second rule sees the output of the first.
	require.Equal(t, "c", Apply("ab", rules))
}

func TestApply_GroupSubstitution(t *testing.T) {
	rules := []Rule{{
		Pattern:  regexp.MustCompile(`(index|bfcode)\{(.*)--(.*)\}`),
		Template: `${1}{${2}-{-}${3}}`,
	}}
	require.Equal(t, `index{foo-{-}bar}`, Apply(`index{foo--bar}`, rules))
}

func TestApply_UnlessSuppressesMatch(t *testing.T) {
	rule := Rule{
		Pattern:  regexp.MustCompile(`\\code\{/(.*?)\}`),
		Template: `\code{https://docs.example.com/v1/${1}}`,
		Unless:   regexp.MustCompile(`^\\code\{/(?:etc|usr)`),
	}
	require.Equal(t, `\code{https://docs.example.com/v1/reference}`, Apply(`\code{/reference}`, []Rule{rule}))
	require.Equal(t, `\code{/etc/mongod.conf}`, Apply(`\code{/etc/mongod.conf}`, []Rule{rule}))
}

func TestProcessFile_WritesTransformedOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.tex")
	dst := filepath.Join(dir, "out.tex")
	require.NoError(t, os.WriteFile(src, []byte(`\PYGZsq{}hello\PYGZsq{}`), 0o644))

	rules := []Rule{{Pattern: regexp.MustCompile(`\\PYGZsq\{\}`), Template: `'`}}
	require.NoError(t, ProcessFile(src, dst, rules, CopyAlways))

	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, `'hello'`, string(out))
}

func TestProcessFile_IfNeededSkipsFreshDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.tex")
	dst := filepath.Join(dir, "out.tex")
	require.NoError(t, os.WriteFile(src, []byte("new content"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("stale content"), 0o644))

	// Destination newer than source: no write may occur.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))
	dstInfo, err := os.Stat(dst)
	require.NoError(t, err)

	require.NoError(t, ProcessFile(src, dst, nil, CopyIfNeeded))

	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "stale content", string(out), "destination must be untouched")

	after, err := os.Stat(dst)
	require.NoError(t, err)
	require.Equal(t, dstInfo.ModTime(), after.ModTime())
}

func TestProcessFile_IfNeededRewritesStaleDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.tex")
	dst := filepath.Join(dir, "out.tex")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(dst, past, past))
	require.NoError(t, os.WriteFile(src, []byte("fresh"), 0o644))

	require.NoError(t, ProcessFile(src, dst, nil, CopyIfNeeded))

	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "fresh", string(out))
}

func TestProcessFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := ProcessFile(filepath.Join(dir, "absent.tex"), filepath.Join(dir, "out.tex"), nil, CopyAlways)
	require.Error(t, err)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Contains(t, terr.Source, "absent.tex")
}

func TestProcessFile_InPlaceRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sphinx.sty")
	require.NoError(t, os.WriteFile(path, []byte(`\usepackage[pdftex]{graphicx}`), 0o644))

	rules := []Rule{{
		Pattern:  regexp.MustCompile(`\\usepackage\[pdftex\]\{graphicx\}`),
		Template: `\usepackage{graphicx}`,
	}}
	require.NoError(t, ProcessFile(path, path, rules, CopyIfNeeded))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `\usepackage{graphicx}`, string(out))

	// A second pass finds nothing to change and leaves the mtime alone.
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, ProcessFile(path, path, rules, CopyIfNeeded))
	after, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, info.ModTime(), after.ModTime())
}
