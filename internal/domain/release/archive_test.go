package release

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestFormatFor ensures only linux produces tarballs.
func TestFormatFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, FormatTGZ, FormatFor("linux"))

	for _, osName := range []string{"", "win32", "darwin", "Linux", "linux2"} {
		require.Equal(t, FormatZIP, FormatFor(osName), osName)
	}
}

// TestFileName covers generic and fully qualified builds.
func TestFileName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		sel  Selectors
		want string
	}{
		{Selectors{}, "app-1.2.3.zip"},
		{Selectors{OS: "linux", Platform: "x64", Runtime: "18"}, "app-1.2.3_node18_linux_x64.tgz"},
		{Selectors{OS: "win32", Platform: "x64", Runtime: "20"}, "app-1.2.3_node20_win32_x64.zip"},
		{Selectors{Runtime: "18"}, "app-1.2.3_node18.zip"},
		{Selectors{OS: "linux"}, "app-1.2.3_linux.tgz"},
		{Selectors{Platform: "arm64"}, "app-1.2.3_arm64.zip"},
		{Selectors{OS: "darwin", Platform: "arm64"}, "app-1.2.3_darwin_arm64.zip"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, FileName("app", "1.2.3", tc.sel))
	}
}

// TestFileName_Property checks that names never carry empty segments and always end with the format.
func TestFileName_Property(t *testing.T) {
	t.Parallel()

	selector := rapid.OneOf(rapid.Just(""), rapid.StringMatching(`[A-Za-z0-9]{1,8}`))

	rapid.Check(t, func(rt *rapid.T) {
		sel := Selectors{
			OS:       selector.Draw(rt, "os"),
			Platform: selector.Draw(rt, "platform"),
			Runtime:  selector.Draw(rt, "runtime"),
		}

		name := FileName("app", "1.2.3", sel)
		require.True(rt, strings.HasPrefix(name, "app-1.2.3"))
		require.True(rt, strings.HasSuffix(name, FormatFor(sel.OS).Extension()))
		require.NotContains(rt, name, "__")
		require.NotContains(rt, name, "_.")
		require.Equal(rt, FileName("app", "1.2.3", sel), name)
	})
}

// TestNewDescriptor places the archive under the distribution directory.
func TestNewDescriptor(t *testing.T) {
	t.Parallel()

	desc := NewDescriptor("dist", "app", "1.2.3", Selectors{OS: "linux", Platform: "x64", Runtime: "18"})
	require.Equal(t, FormatTGZ, desc.Format)
	require.Equal(t, "app-1.2.3_node18_linux_x64.tgz", desc.FileName)
	require.Equal(t, filepath.Join("dist", "app-1.2.3_node18_linux_x64.tgz"), desc.Path)
	require.Equal(t, "app_1.2.3", RootDir("app", "1.2.3"))
}
