// Package release holds the pure rules of a release build: selector
// sanitization, archive naming and format choice, and the inclusion set
// describing what goes into the archive. Nothing here touches the filesystem.
package release
