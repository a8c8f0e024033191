// Package archiver materializes an inclusion set into a single tgz or zip
// archive under a version-qualified root directory.
//
// Matching is done once up front, entries are written in lexical order of
// their project-relative path, and the archive is assembled in a temporary
// file that is renamed into place only when every entry was written.
package archiver
