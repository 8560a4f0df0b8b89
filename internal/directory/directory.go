// Package directory holds the legislator roster keyed by chamber and
// district.
package directory

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lobbying-cli/internal/district"
)

// Legislator is one seat holder.
type Legislator struct {
	Chamber  district.Chamber `yaml:"chamber" json:"chamber"`
	District string           `yaml:"district" json:"district"`
	Name     string           `yaml:"name" json:"name"`
	Slug     string           `yaml:"slug" json:"slug"`
	Party    string           `yaml:"party" json:"party,omitempty"`
	Photo    string           `yaml:"photo" json:"photo,omitempty"`
}

// Office returns "Senator" or "Representative".
func (l Legislator) Office() string { return l.Chamber.Office() }

// Title returns the display title, e.g. "Sen. Jane Doe (R)".
func (l Legislator) Title() string {
	prefix := "Rep."
	if l.Chamber == district.Senate {
		prefix = "Sen."
	}
	title := prefix + " " + l.Name
	if l.Party != "" {
		title += " (" + l.Party + ")"
	}
	return title
}

type seat struct {
	chamber district.Chamber
	id      string
}

// Directory is an immutable roster.
type Directory struct {
	legislators []Legislator
	bySeat      map[seat]int
	bySlug      map[string]int
}

// New validates the roster. Missing slugs are derived from the name.
// Duplicate seats or slugs are rejected.
func New(legislators []Legislator) (*Directory, error) {
	d := &Directory{
		legislators: make([]Legislator, 0, len(legislators)),
		bySeat:      make(map[seat]int, len(legislators)),
		bySlug:      make(map[string]int, len(legislators)),
	}

	for _, l := range legislators {
		chamber, err := district.ParseChamber(string(l.Chamber))
		if err != nil {
			return nil, eris.Wrapf(err, "directory: %s", l.Name)
		}
		l.Chamber = chamber
		l.Name = strings.TrimSpace(l.Name)
		l.District = district.NormalizeID(l.District)
		if l.Name == "" || l.District == "" {
			return nil, eris.Errorf("directory: %s entry missing name or district", chamber)
		}
		if l.Slug == "" {
			l.Slug = Slugify(l.Name)
		}

		key := seat{chamber, l.District}
		if _, dup := d.bySeat[key]; dup {
			return nil, eris.Errorf("directory: duplicate seat %s %s", chamber, l.District)
		}
		if _, dup := d.bySlug[l.Slug]; dup {
			return nil, eris.Errorf("directory: duplicate slug %q", l.Slug)
		}
		d.bySeat[key] = -1
		d.bySlug[l.Slug] = -1
		d.legislators = append(d.legislators, l)
	}

	sort.SliceStable(d.legislators, func(i, j int) bool {
		a, b := d.legislators[i], d.legislators[j]
		if a.Chamber != b.Chamber {
			return a.Chamber == district.Senate
		}
		return lessDistrict(a.District, b.District)
	})
	for i, l := range d.legislators {
		d.bySeat[seat{l.Chamber, l.District}] = i
		d.bySlug[l.Slug] = i
	}
	return d, nil
}

// Read parses a YAML list of legislators.
func Read(r io.Reader) (*Directory, error) {
	var legislators []Legislator
	if err := yaml.NewDecoder(r).Decode(&legislators); err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "directory: parse yaml")
	}
	return New(legislators)
}

// Load reads a YAML roster file.
func Load(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "directory: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return Read(f)
}

// Len returns the number of legislators.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.legislators)
}

// All returns senators then representatives, each by district number.
func (d *Directory) All() []Legislator {
	if d == nil {
		return nil
	}
	out := make([]Legislator, len(d.legislators))
	copy(out, d.legislators)
	return out
}

// Chamber returns one chamber's legislators by district number.
func (d *Directory) Chamber(c district.Chamber) []Legislator {
	var out []Legislator
	for _, l := range d.All() {
		if l.Chamber == c {
			out = append(out, l)
		}
	}
	return out
}

// ByDistrict returns the holder of a seat.
func (d *Directory) ByDistrict(c district.Chamber, id string) (Legislator, bool) {
	if d == nil {
		return Legislator{}, false
	}
	i, ok := d.bySeat[seat{c, district.NormalizeID(id)}]
	if !ok {
		return Legislator{}, false
	}
	return d.legislators[i], true
}

// BySlug returns a legislator by slug.
func (d *Directory) BySlug(slug string) (Legislator, bool) {
	if d == nil {
		return Legislator{}, false
	}
	i, ok := d.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	if !ok {
		return Legislator{}, false
	}
	return d.legislators[i], true
}

// ByName matches a free-text name such as an expenditure recipient. Titles
// like "Rep." or "Senator" are ignored.
func (d *Directory) ByName(name string) (Legislator, bool) {
	if d == nil {
		return Legislator{}, false
	}
	fields := strings.Fields(name)
	for len(fields) > 0 && isTitle(fields[0]) {
		fields = fields[1:]
	}
	slug := Slugify(strings.Join(fields, " "))
	if slug == "" {
		return Legislator{}, false
	}
	if l, ok := d.BySlug(slug); ok {
		return l, true
	}
	for _, l := range d.legislators {
		if Slugify(l.Name) == slug {
			return l, true
		}
	}
	return Legislator{}, false
}

func isTitle(s string) bool {
	switch strings.ToLower(strings.TrimSuffix(s, ".")) {
	case "rep", "representative", "sen", "senator":
		return true
	}
	return false
}

func lessDistrict(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
