package manifest

import (
	"fmt"

	"github.com/oshokin/release-packager/internal/domain/release"
)

// Manifest keys the pipeline reads or rewrites.
const (
	keyName    = "name"
	keyVersion = "version"
	keyEngines = "engines"
	keyNode    = "node"
	keyOS      = "os"
	keyCPU     = "cpu"
)

// Patch bakes the resolved selectors into the manifest:
// engines.node gets the runtime version, os and cpu become one-element lists.
// Unset selectors leave the corresponding field exactly as it was.
// Patching twice with the same selectors yields the same document.
func Patch(doc *Document, sel release.Selectors) error {
	if sel.Runtime != "" {
		if err := doc.SetString(sel.Runtime, keyEngines, keyNode); err != nil {
			return fmt.Errorf("patch engines.node: %w", err)
		}
	}

	if sel.OS != "" {
		if err := doc.SetStringList([]string{sel.OS}, keyOS); err != nil {
			return fmt.Errorf("patch os: %w", err)
		}
	}

	if sel.Platform != "" {
		if err := doc.SetStringList([]string{sel.Platform}, keyCPU); err != nil {
			return fmt.Errorf("patch cpu: %w", err)
		}
	}

	return nil
}
