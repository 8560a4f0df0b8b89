package directory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lobbying-cli/internal/district"
)

const rosterYAML = `
- chamber: house
  district: 12
  name: Mary Smith
  party: D
- chamber: Senate
  district: "005"
  name: José O'Hara Jr.
  slug: jose-ohara
  party: R
  photo: jose_ohara.gif
- chamber: house
  district: 2
  name: Bob Jones
  party: R
`

func TestRead(t *testing.T) {
	d, err := Read(strings.NewReader(rosterYAML))
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())

	all := d.All()
	require.Len(t, all, 3)
	assert.Equal(t, district.Senate, all[0].Chamber, "senators first")
	assert.Equal(t, "2", all[1].District, "house ordered numerically")
	assert.Equal(t, "12", all[2].District)

	l, ok := d.ByDistrict(district.Senate, "5")
	require.True(t, ok)
	assert.Equal(t, "jose-ohara", l.Slug)
	assert.Equal(t, "Senator", l.Office())
	assert.Equal(t, "Sen. José O'Hara Jr. (R)", l.Title())

	l, ok = d.BySlug("mary-smith")
	require.True(t, ok, "slug derived from name")
	assert.Equal(t, "12", l.District)

	_, ok = d.ByDistrict(district.House, "99")
	assert.False(t, ok)

	assert.Len(t, d.Chamber(district.House), 2)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   []Legislator
	}{
		{"bad chamber", []Legislator{{Chamber: "assembly", District: "1", Name: "A"}}},
		{"missing name", []Legislator{{Chamber: district.House, District: "1"}}},
		{"duplicate seat", []Legislator{
			{Chamber: district.House, District: "1", Name: "A"},
			{Chamber: district.House, District: "01", Name: "B"},
		}},
		{"duplicate slug", []Legislator{
			{Chamber: district.House, District: "1", Name: "A B"},
			{Chamber: district.Senate, District: "1", Name: "A. B"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestByName(t *testing.T) {
	d, err := Read(strings.NewReader(rosterYAML))
	require.NoError(t, err)

	for _, name := range []string{"Rep. Mary Smith", "MARY SMITH", "Representative Mary  Smith"} {
		l, ok := d.ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, "mary-smith", l.Slug)
	}

	l, ok := d.ByName("Senator Jose O'Hara Jr.")
	require.True(t, ok, "matched by name when slug differs")
	assert.Equal(t, "5", l.District)

	_, ok = d.ByName("Rep.")
	assert.False(t, ok)
	_, ok = d.ByName("Nobody")
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legislators.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rosterYAML), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Read(strings.NewReader("{not: [a list"))
	assert.Error(t, err)

	empty, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Mary Smith":         "mary-smith",
		"José O'Hara Jr.":    "jose-ohara-jr",
		"  Anne-Marie  Lee ": "anne-marie-lee",
		"AT&T Missouri":      "at-t-missouri",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestSplitName(t *testing.T) {
	first, last := SplitName("Mary Ann Smith")
	assert.Equal(t, "Mary Ann", first)
	assert.Equal(t, "Smith", last)

	first, last = SplitName("José O'Hara Jr.")
	assert.Equal(t, "José", first)
	assert.Equal(t, "O'Hara Jr.", last)

	first, last = SplitName("Cher")
	assert.Equal(t, "", first)
	assert.Equal(t, "Cher", last)

	first, last = SplitName("")
	assert.Empty(t, first+last)
}
