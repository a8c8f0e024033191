package release

import (
	"path/filepath"
	"strings"
)

// Format is the container format of a release archive.
type Format string

const (
	// FormatTGZ is a gzip-compressed tarball.
	FormatTGZ Format = "tgz"
	// FormatZIP is a zip archive.
	FormatZIP Format = "zip"

	// LinuxOS is the only OS selector packaged as a tarball.
	LinuxOS = "linux"

	// runtimePrefix precedes the runtime version in archive names.
	runtimePrefix = "node"
)

// FormatFor returns FormatTGZ for linux and FormatZIP for everything else, including unset.
func FormatFor(osName string) Format {
	if osName == LinuxOS {
		return FormatTGZ
	}

	return FormatZIP
}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// FileName builds the archive file name:
//
//	{name}-{version}[_node{runtime}][_{os}][_{platform}].{tgz|zip}
//
// Unset selectors omit their segment entirely.
func FileName(name, version string, sel Selectors) string {
	var b strings.Builder

	b.WriteString(name)
	b.WriteByte('-')
	b.WriteString(version)

	if sel.Runtime != "" {
		b.WriteString("_" + runtimePrefix)
		b.WriteString(sel.Runtime)
	}

	if sel.OS != "" {
		b.WriteByte('_')
		b.WriteString(sel.OS)
	}

	if sel.Platform != "" {
		b.WriteByte('_')
		b.WriteString(sel.Platform)
	}

	b.WriteString(FormatFor(sel.OS).Extension())

	return b.String()
}

// RootDir returns the version-qualified directory every archived path lives under.
func RootDir(name, version string) string {
	return name + "_" + version
}

// Descriptor tells the archiver what to produce and where.
type Descriptor struct {
	// Format is the container format.
	Format Format
	// FileName is the bare archive file name.
	FileName string
	// Path is FileName joined under the distribution directory.
	Path string
}

// NewDescriptor computes the archive descriptor for a project under distDir.
func NewDescriptor(distDir, name, version string, sel Selectors) Descriptor {
	fileName := FileName(name, version, sel)

	return Descriptor{
		Format:   FormatFor(sel.OS),
		FileName: fileName,
		Path:     filepath.Join(distDir, fileName),
	}
}
