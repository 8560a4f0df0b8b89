package mugs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lobbying-cli/internal/district"
)

const houseRoster = `<html><body>
<table id="ContentPlaceHolder1_gridMembers_DXMainTable">
<tr><td><a href="?district=001">Smith</a></td><td><a href="/ignored">Party</a></td></tr>
<tr><td><a href="?district=002">Jones</a></td><td>R</td></tr>
<tr><td><a href="?district=003">Missing</a></td><td>D</td></tr>
</table>
<table><tr><td><a href="/not-in-grid">x</a></td></tr></table>
</body></html>`

const senateRoster = `<html><body>
<table><tr><td>
  <table>
    <tr><td><a href="/senators/doe.htm">Doe</a></td><td><a href="/other">x</a></td></tr>
  </table>
</td></tr></table>
<table><tr><td><a href="/outer-only">y</a></td></tr></table>
</body></html>`

func newRosterServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/member.aspx", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("district") {
		case "":
			_, _ = w.Write([]byte(houseRoster))
		case "001":
			_, _ = w.Write([]byte(`<img id="ContentPlaceHolder1_imgPhoto" src="/photos/001.png" alt="Mary A. Smith">`))
		case "002":
			_, _ = w.Write([]byte(`<img id="ContentPlaceHolder1_imgPhoto" src="photos/002.png" alt="Bob Jones">`))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/photos/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("img:" + r.URL.Path))
	})
	mux.HandleFunc("/13info/SenateRoster.htm", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(senateRoster))
	})
	mux.HandleFunc("/senators/doe.htm", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Sen. Jane Doe</title></head><body>
<div id="container"><div><p>bio</p><img src="/photos/doe.gif"></div><div><img src="/photos/wrong.gif"></div></div>
</body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testScraper() *Scraper {
	return NewScraper(WithRateLimit(0), WithConcurrency(2), WithUserAgent("test"))
}

func TestScrape_House(t *testing.T) {
	srv := newRosterServer(t)
	dest := t.TempDir()

	photos, err := testScraper().Scrape(context.Background(), House(srv.URL+"/member.aspx"), dest)
	require.NoError(t, err)
	require.Len(t, photos, 2, "member without a page is skipped")

	sort.Slice(photos, func(i, j int) bool { return photos[i].Name < photos[j].Name })
	assert.Equal(t, "bob_jones", photos[0].Name)
	assert.Equal(t, "mary_a_smith", photos[1].Name)
	assert.Equal(t, district.House, photos[1].Chamber)
	assert.Equal(t, srv.URL+"/photos/001.png", photos[1].URL)

	data, err := os.ReadFile(filepath.Join(dest, "mary_a_smith.png"))
	require.NoError(t, err)
	assert.Equal(t, "img:/photos/001.png", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "bob_jones.png"))
	require.NoError(t, err)
	assert.Equal(t, "img:/photos/002.png", string(data), "relative src resolved against page")
}

func TestScrape_Senate(t *testing.T) {
	srv := newRosterServer(t)
	dest := t.TempDir()

	photos, err := testScraper().Scrape(context.Background(), Senate(srv.URL+"/13info/SenateRoster.htm"), dest)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "sen_jane_doe", photos[0].Name)
	assert.Equal(t, filepath.Join(dest, "sen_jane_doe.gif"), photos[0].Path)

	data, err := os.ReadFile(photos[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "img:/photos/doe.gif", string(data))
}

func TestScrape_RosterError(t *testing.T) {
	srv := newRosterServer(t)
	_, err := testScraper().Scrape(context.Background(), House(srv.URL+"/missing"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "house roster")
}

func TestScrape_Cancelled(t *testing.T) {
	srv := newRosterServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testScraper().Scrape(ctx, House(srv.URL+"/member.aspx"), t.TempDir())
	assert.Error(t, err)
}

func parseDoc(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func TestLinks(t *testing.T) {
	assert.Equal(t, []string{"?district=001", "?district=002", "?district=003"}, House("").Links(parseDoc(t, houseRoster)))
	assert.Equal(t, []string{"/senators/doe.htm"}, Senate("").Links(parseDoc(t, senateRoster)))

	doc := parseDoc(t, `<p>no grid</p>`)
	assert.Empty(t, House("").Links(doc))
	_, _, ok := Senate("").Portrait(doc)
	assert.False(t, ok)
	_, _, ok = House("").Portrait(doc)
	assert.False(t, ok)
}

func TestPortrait(t *testing.T) {
	src, name, ok := House("").Portrait(parseDoc(t,
		`<div><img src="/a.png"><img id="ContentPlaceHolder1_imgPhoto" src="/photos/7.png" alt="Rep. Al Bee"></div>`))
	require.True(t, ok)
	assert.Equal(t, "/photos/7.png", src)
	assert.Equal(t, "rep_al_bee", name)

	src, name, ok = Senate("").Portrait(parseDoc(t, `<html><head><title>Sen. Jane Doe</title></head><body>
<img src="/photos/outside.gif">
<div id="container"><div><p>bio</p><img src="/photos/doe.gif"></div><div><img src="/photos/wrong.gif"></div></div>
</body></html>`))
	require.True(t, ok)
	assert.Equal(t, "/photos/doe.gif", src)
	assert.Equal(t, "sen_jane_doe", name)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "mary_a_smith", FileName(" Mary A. Smith "))
	assert.Equal(t, "sen_jane_doe_jr", FileName("Sen. Jane Doe Jr."))
}
