package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// exclusionPrefix marks a pattern that removes paths from the set.
const exclusionPrefix = "!"

var (
	errNoInclusions = errors.New("inclusion set has no inclusion patterns")
	errBadPattern   = errors.New("invalid pattern")
	errEmptyRoot    = errors.New("inclusion set root is empty")
)

// DefaultPatterns returns the inclusion patterns of a packaged Node.js
// application: legal files, manifest, runtime configuration, compiled output
// (minus its reports), static data, placeholders for uploaded content, and
// the full dependency tree.
func DefaultPatterns() []string {
	return []string{
		".well-known/**",
		"LICENSE",
		"*.md",
		"package.json",
		"ctf.key",
		"swagger.yml",
		"server.ts",
		"config.schema.yml",
		"build/**",
		"!build/reports/**",
		"bom.json",
		"bom.xml",
		"config/*.yml",
		"data/*.ts",
		"data/static/**",
		"data/chatbot/.gitkeep",
		"encryptionkeys/**",
		"frontend/dist/frontend/**",
		"frontend/dist/bom/**",
		"frontend/src/**/*.ts",
		"ftp/**",
		"i18n/.gitkeep",
		"lib/**",
		"models/*.ts",
		"node_modules/**",
		"routes/*.ts",
		"uploads/complaints/.gitkeep",
		"views/**",
	}
}

// InclusionSet is an ordered list of glob patterns plus the archive root they land under.
type InclusionSet struct {
	// Patterns are slash-separated doublestar globs relative to the project
	// directory. A leading "!" turns a pattern into an exclusion.
	Patterns []string
	// Root is the directory inside the archive that holds every entry.
	Root string
}

// NewInclusionSet validates patterns and binds them to root.
func NewInclusionSet(patterns []string, root string) (InclusionSet, error) {
	if root == "" {
		return InclusionSet{}, errEmptyRoot
	}

	if err := ValidatePatterns(patterns); err != nil {
		return InclusionSet{}, err
	}

	return InclusionSet{
		Patterns: append([]string(nil), patterns...),
		Root:     root,
	}, nil
}

// ValidatePatterns checks glob syntax and that at least one inclusion exists.
func ValidatePatterns(patterns []string) error {
	var inclusions int

	for _, pattern := range patterns {
		glob, excluded := strings.CutPrefix(pattern, exclusionPrefix)
		if glob == "" || !doublestar.ValidatePattern(glob) {
			return fmt.Errorf("%w: %q", errBadPattern, pattern)
		}

		if !excluded {
			inclusions++
		}
	}

	if inclusions == 0 {
		return errNoInclusions
	}

	return nil
}

// Inclusions returns the inclusion patterns in declaration order.
func (s InclusionSet) Inclusions() []string {
	result := make([]string, 0, len(s.Patterns))

	for _, pattern := range s.Patterns {
		if !strings.HasPrefix(pattern, exclusionPrefix) {
			result = append(result, pattern)
		}
	}

	return result
}

// Exclusions returns the exclusion patterns without their "!" marker.
func (s InclusionSet) Exclusions() []string {
	var result []string

	for _, pattern := range s.Patterns {
		if glob, ok := strings.CutPrefix(pattern, exclusionPrefix); ok {
			result = append(result, glob)
		}
	}

	return result
}

// Excluded reports whether rel matches any exclusion pattern.
func (s InclusionSet) Excluded(rel string) bool {
	for _, glob := range s.Exclusions() {
		if doublestar.MatchUnvalidated(glob, rel) {
			return true
		}
	}

	return false
}

// Includes reports whether rel is matched by an inclusion and not excluded.
// Exclusions always win regardless of their position in Patterns.
func (s InclusionSet) Includes(rel string) bool {
	if s.Excluded(rel) {
		return false
	}

	for _, glob := range s.Inclusions() {
		if doublestar.MatchUnvalidated(glob, rel) {
			return true
		}
	}

	return false
}

// ArchivePath maps a project-relative path to its location inside the archive.
func (s InclusionSet) ArchivePath(rel string) string {
	return s.Root + "/" + rel
}
