// Package packager drives one release packaging pass.
//
// Stages run strictly in order, each consuming the previous one's on-disk
// result: selectors are resolved, the manifest is patched in place, the
// archive is named, the inclusion set is archived into the distribution
// directory, and finally every file in that directory gets a digest file.
// The first failure stops the run; nothing is retried.
package packager
