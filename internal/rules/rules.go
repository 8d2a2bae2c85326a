// Package rules compiles module rules into a matcher deciding how each
// source file is loaded.
package rules

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/pagepack/internal/buildconfig"
)

// DefaultAssetName is the emitted file name used when a rule gives none.
const DefaultAssetName = "[hash].[ext]"

// Disposition is what a rule does with a particular file.
type Disposition int

const (
	// Passthrough leaves the file to the bundler's default handling
	Passthrough Disposition = iota
	// Transpile lowers modern syntax before bundling
	Transpile
	// Inline embeds the file as a data URI
	Inline
	// Emit writes the file as a separate content hashed asset
	Emit
	// Text embeds the file contents as a string
	Text
)

func (d Disposition) String() string {
	switch d {
	case Transpile:
		return "transpile"
	case Inline:
		return "inline"
	case Emit:
		return "emit"
	case Text:
		return "text"
	default:
		return "passthrough"
	}
}

// Rule is a compiled module rule.
type Rule struct {
	Index   int
	Loader  string
	Limit   int64
	Name    string
	Target  api.Target
	test    *regexp.Regexp
	exclude *regexp.Regexp
	include *regexp.Regexp
}

// Set is an ordered list of compiled rules.
type Set struct {
	rules []*Rule
}

// Compile builds a Set from the configured rules.
func Compile(module buildconfig.Module) (*Set, error) {
	set := &Set{}

	for i, cfg := range module.Rules {
		chain := cfg.Chain()
		if len(chain) == 0 {
			return nil, fmt.Errorf("rules[%d]: a loader is required", i)
		}
		// the first loader in the chain selects the handling, the bundler
		// performs the rest of the transform
		use := chain[0]
		loader, ok := buildconfig.CanonicalLoader(use.Loader)
		if !ok {
			return nil, fmt.Errorf("rules[%d]: unknown loader %q", i, use.Loader)
		}

		r := &Rule{
			Index:  i,
			Loader: loader,
			Limit:  use.Options.Limit,
			Name:   use.Options.Name,
			Target: targetFor(use.Options.Presets),
		}
		if r.Name == "" {
			r.Name = DefaultAssetName
		}

		var err error
		if r.test, err = compile(cfg.Test); err != nil {
			return nil, fmt.Errorf("rules[%d].test: %w", i, err)
		}
		if r.exclude, err = compile(cfg.Exclude); err != nil {
			return nil, fmt.Errorf("rules[%d].exclude: %w", i, err)
		}
		if r.include, err = compile(cfg.Include); err != nil {
			return nil, fmt.Errorf("rules[%d].include: %w", i, err)
		}

		set.rules = append(set.rules, r)
	}

	return set, nil
}

func compile(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	return regexp.Compile(expr)
}

// Len returns the number of rules.
func (s *Set) Len() int {
	return len(s.rules)
}

// HasLoader reports whether any rule uses the canonical loader.
func (s *Set) HasLoader(loader string) bool {
	for _, r := range s.rules {
		if r.Loader == loader {
			return true
		}
	}
	return false
}

// Match returns the first rule in declared order that applies to path.
func (s *Set) Match(path string) (*Rule, bool) {
	p := filepath.ToSlash(path)
	for _, r := range s.rules {
		if r.Applies(p) {
			return r, true
		}
	}
	return nil, false
}

// Decide returns how the file at path with the given size is handled.
func (s *Set) Decide(path string, size int64) Disposition {
	r, ok := s.Match(path)
	if !ok {
		return Passthrough
	}
	return r.Decide(size)
}

// Applies reports whether the rule governs the slash separated path.
func (r *Rule) Applies(path string) bool {
	if r.test == nil || !r.test.MatchString(path) {
		return false
	}
	if r.include != nil && !r.include.MatchString(path) {
		return false
	}
	if r.exclude != nil && r.exclude.MatchString(path) {
		return false
	}
	return true
}

// Decide applies the rule's loader policy to a file of the given size.
// The url loader inlines files at or below Limit, a zero Limit inlines everything.
func (r *Rule) Decide(size int64) Disposition {
	switch r.Loader {
	case buildconfig.LoaderTranspile:
		return Transpile
	case buildconfig.LoaderURL:
		if r.Limit == 0 || size <= r.Limit {
			return Inline
		}
		return Emit
	case buildconfig.LoaderFile:
		return Emit
	case buildconfig.LoaderText:
		return Text
	default:
		return Passthrough
	}
}

func targetFor(presets []string) api.Target {
	target := api.ES2015
	for _, p := range presets {
		switch p {
		case "es2017":
			target = api.ES2017
		case "es2020":
			target = api.ES2020
		case "esnext":
			target = api.ESNext
		}
	}
	return target
}
