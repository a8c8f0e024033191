// Package checksum writes a sibling .digest file for every regular file in
// the distribution directory. It runs once, after all archives are written,
// and hashes whatever the directory holds at that moment.
package checksum
