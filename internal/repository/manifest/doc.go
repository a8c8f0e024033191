// Package manifest reads, patches and atomically rewrites the project
// manifest (package.json or a YAML equivalent).
//
// The manifest is kept as an ordered yaml.v3 node tree so that keys the
// pipeline does not own survive a rewrite untouched and in their original
// order. Only engines.node, os and cpu are ever modified.
package manifest
