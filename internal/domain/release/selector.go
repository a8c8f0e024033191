package release

import (
	"regexp"
	"slices"
)

// selectorPattern is the whitelist every selector must match in its entirety.
// Selectors end up in file names, so anything else is dropped.
var selectorPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Selectors qualify a release build. An empty field means "unset": the
// manifest keeps its own value and the archive name omits the segment.
type Selectors struct {
	// OS is the operating-system tag, e.g. "linux" or "win32".
	OS string
	// Platform is the CPU-architecture tag, e.g. "x64" or "arm64".
	Platform string
	// Runtime is the Node.js runtime version tag, e.g. "18".
	Runtime string
}

// Sanitize returns candidate if it matches the selector whitelist and "" otherwise.
func Sanitize(candidate string) string {
	if candidate == "" || !selectorPattern.MatchString(candidate) {
		return ""
	}

	return candidate
}

// Resolve picks the first non-empty candidate and sanitizes it.
// Candidates are given in priority order. A rejected candidate resolves to ""
// instead of falling through to lower-priority ones.
func Resolve(candidates ...string) string {
	for _, candidate := range candidates {
		if candidate != "" {
			return Sanitize(candidate)
		}
	}

	return ""
}

// Selector names, as reported for rejected values.
const (
	SelectorOS       = "os"
	SelectorPlatform = "platform"
	SelectorRuntime  = "node"
)

// Candidates holds the raw values of every selector, highest priority first.
// Empty strings stand for unset sources.
type Candidates struct {
	OS       []string
	Platform []string
	Runtime  []string
}

// Resolve applies Resolve to each selector. It also returns the names of the
// selectors whose chosen value failed the whitelist.
func (c Candidates) Resolve() (Selectors, []string) {
	var rejected []string

	pick := func(name string, candidates []string) string {
		value := Resolve(candidates...)
		if value == "" && slices.ContainsFunc(candidates, isSet) {
			rejected = append(rejected, name)
		}

		return value
	}

	sel := Selectors{
		OS:       pick(SelectorOS, c.OS),
		Platform: pick(SelectorPlatform, c.Platform),
		Runtime:  pick(SelectorRuntime, c.Runtime),
	}

	return sel, rejected
}

func isSet(candidate string) bool {
	return candidate != ""
}

// IsGeneric reports whether no selector is set.
func (s Selectors) IsGeneric() bool {
	return s.OS == "" && s.Platform == "" && s.Runtime == ""
}
