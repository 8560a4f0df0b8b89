package district

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sharedEdgeTopology = `{
  "type": "Topology",
  "arcs": [
    [[10,0],[10,10]],
    [[10,10],[0,10],[0,0],[10,0]],
    [[10,0],[20,0],[20,10],[10,10]]
  ],
  "objects": {
    "sldu": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[1,0]], "properties": {"district": "05", "name": "District 5"}},
        {"type": "Polygon", "arcs": [[2,-1]], "properties": {"district": 6}},
        {"type": null}
      ]
    }
  }
}`

func TestReadTopoJSON_SharedArcs(t *testing.T) {
	districts, err := ReadTopoJSON(strings.NewReader(sharedEdgeTopology), TopoJSONOptions{
		IDProperty:   "district",
		NameProperty: "name",
	})
	require.NoError(t, err)
	require.Len(t, districts, 2)

	set := mustSet(t, Senate, districts...)
	assert.Equal(t, "5", Resolve(Point{Lat: 5, Lng: 5}, set).DistrictID)
	assert.Equal(t, "6", Resolve(Point{Lat: 5, Lng: 15}, set).DistrictID)
	assert.False(t, Resolve(Point{Lat: 5, Lng: 25}, set).Found)

	d, ok := set.Get("5")
	require.True(t, ok)
	assert.Equal(t, "District 5", d.Name)
}

func TestReadTopoJSON_Quantized(t *testing.T) {
	doc := `{
	  "type": "Topology",
	  "transform": {"scale": [0.5, 0.5], "translate": [100, 40]},
	  "arcs": [[[0,0],[0,20],[20,0],[0,-20],[-20,0]]],
	  "objects": {"house": {"type": "Polygon", "id": 3, "arcs": [[0]]}}
	}`
	districts, err := ReadTopoJSON(strings.NewReader(doc), TopoJSONOptions{})
	require.NoError(t, err)
	require.Len(t, districts, 1)
	assert.Equal(t, "3", districts[0].ID)

	set := mustSet(t, House, districts...)
	assert.True(t, Resolve(Point{Lat: 45, Lng: 105}, set).Found)
	assert.False(t, Resolve(Point{Lat: 5, Lng: 5}, set).Found)
}

func TestReadTopoJSON_ObjectSelection(t *testing.T) {
	doc := `{"type":"Topology","arcs":[],"objects":{"a":{"type":"GeometryCollection","geometries":[]},"b":{"type":"GeometryCollection","geometries":[]}}}`

	_, err := ReadTopoJSON(strings.NewReader(doc), TopoJSONOptions{})
	assert.Error(t, err, "ambiguous object")

	districts, err := ReadTopoJSON(strings.NewReader(doc), TopoJSONOptions{Object: "b"})
	require.NoError(t, err)
	assert.Empty(t, districts)

	_, err = ReadTopoJSON(strings.NewReader(doc), TopoJSONOptions{Object: "c"})
	assert.Error(t, err)
}

func TestReadTopoJSON_Invalid(t *testing.T) {
	_, err := ReadTopoJSON(strings.NewReader(`{"type":"FeatureCollection"}`), TopoJSONOptions{})
	assert.Error(t, err)

	bad := `{"type":"Topology","arcs":[],"objects":{"x":{"type":"Polygon","arcs":[[4]]}}}`
	_, err = ReadTopoJSON(strings.NewReader(bad), TopoJSONOptions{})
	assert.Error(t, err, "arc index out of range")
}

func TestStitch_ReversedArc(t *testing.T) {
	arcs := [][]float64{{0, 0, 1, 0, 1, 1}}
	ring, err := stitch([]int{^0}, arcs)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 0, 0, 0}, ring)
}
