package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterRegion(t *testing.T) {
	cands := []Candidate{
		{DisplayName: "Capitol Avenue, Jefferson City, Cole County, Missouri, 65101, United States of America"},
		{DisplayName: "Jefferson City, Ontario, Canada"},
		{DisplayName: "Springfield, Sangamon County, Illinois, United States of America"},
	}

	us := FilterRegion(cands)
	assert.Len(t, us, 2)

	mo := FilterRegion(cands, DefaultRegion, "Missouri")
	assert.Len(t, mo, 1)
	assert.Contains(t, mo[0].DisplayName, "Jefferson City")

	assert.Empty(t, FilterRegion(nil))
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "Jefferson City, Missouri", ShortName("Jefferson City, Missouri, United States of America"))
	assert.Equal(t, "Toronto, Canada", ShortName("Toronto, Canada"))
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "201 w capitol ave", normalizeQuery("  201 W  Capitol\tAve "))
	assert.Equal(t, cacheKey("201 W Capitol Ave"), cacheKey("201 w capitol  ave"))
}
