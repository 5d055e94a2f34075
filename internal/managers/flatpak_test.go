package managers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khurrambhutto/scope/internal/pkgs"
)

const flatpakListCmd = "flatpak list --app --columns=name,application,version,size,description"

func TestFlatpakEnumerate(t *testing.T) {
	t.Parallel()

	run := newFakeRunner()
	run.outputs[flatpakListCmd] = "GIMP\torg.gimp.GIMP\t2.10.38\t636,1 MB\tCreate images and edit photographs\n" +
		"OBS Studio\tcom.obsproject.Studio\t30.1.2\t1.2 GB\n" +
		"short\trecord\n"

	fp := NewFlatpak(run)
	got := collect(t, fp)

	require.Len(t, got, 2)
	require.Equal(t, "GIMP", got[0].Name)
	require.Equal(t, "org.gimp.GIMP", got[0].ID.LocalID, "application ID is the identity, not the display name")
	require.Equal(t, uint64(666999193), got[0].SizeBytes) // 636.1 * 2^20, truncated
	require.Equal(t, "Create images and edit photographs", got[0].Description)
	require.Equal(t, pkgs.KindGUI, got[0].Kind)

	require.Equal(t, "com.obsproject.Studio", got[1].ID.LocalID)
	require.Empty(t, got[1].Description, "description column is optional")

	require.Len(t, fp.Diagnostics(), 1, "short record is skipped and recorded")
}

func TestFlatpakCheckUpdate(t *testing.T) {
	t.Parallel()

	run := newFakeRunner()
	run.outputs[cmdKey("flatpak", "remote-ls", "--updates", "--app", "--columns=application,version")] =
		"org.gimp.GIMP\t2.10.40\n"

	fp := NewFlatpak(run)
	version, has, err := fp.CheckUpdate(context.Background(),
		pkgs.Package{ID: pkgs.Identity{Source: pkgs.SourceFlatpak, LocalID: "org.gimp.GIMP"}})
	require.NoError(t, err)
	require.True(t, has)
	require.Equal(t, "2.10.40", version)

	_, has, err = fp.CheckUpdate(context.Background(),
		pkgs.Package{ID: pkgs.Identity{Source: pkgs.SourceFlatpak, LocalID: "com.obsproject.Studio"}})
	require.NoError(t, err)
	require.False(t, has)
}

func TestFlatpakMutationsAreUnprivileged(t *testing.T) {
	t.Parallel()

	run := newFakeRunner()
	run.outputs[cmdKey("flatpak", "uninstall", "-y", "org.gimp.GIMP")] = ""
	run.outputs[cmdKey("flatpak", "update", "-y", "org.gimp.GIMP")] = ""

	fp := NewFlatpak(run)
	p := pkgs.Package{ID: pkgs.Identity{Source: pkgs.SourceFlatpak, LocalID: "org.gimp.GIMP"}}
	require.NoError(t, fp.Uninstall(context.Background(), p))
	require.NoError(t, fp.Update(context.Background(), p))
	require.Equal(t, []string{
		"flatpak uninstall -y org.gimp.GIMP",
		"flatpak update -y org.gimp.GIMP",
	}, run.commands())
}

func TestParseHumanSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want uint64
	}{
		{"512 B", 512},
		{"1.5 KB", 1536},
		{"636,1 MB", 666999193}, // 636.1 * 2^20
		{"1.2 GB", 1288490188},  // 1.2 * 2^30
		{"", 0},
		{"garbage", 0},
		{"42", 42},
	}
	for _, c := range cases {
		require.Equal(t, c.want, parseHumanSize(c.in), "parseHumanSize(%q)", c.in)
	}
}
