package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgEdge/pgedge-econ/internal/schema"
)

func TestCleanLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"California", "California"},
		{"  California ", "California"},
		{"california", "California"},
		{"CALIFORNIA", "California"},
		{"new   york", "New York"},
		{"DISTRICT OF COLUMBIA", "District of Columbia"},
		{"Washington, D.C.", "District of Columbia"},
		{"washington dc", "District of Columbia"},
		{`"Texas"`, "Texas"},
		{"U.S. city average", "U.S. city average"},
		{"SIZE CLASS A", "Size Class A"},
		{"Midwest", "Midwest"},
		{"us", "United States"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanLabel(tt.in))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in       string
		def      string
		wantName string
		wantType string
	}{
		{"ohio", schema.RegionRegion, "Ohio", schema.RegionState},
		{"Pacific", schema.RegionState, "Pacific", schema.RegionDivision},
		{"NORTHEAST", schema.RegionState, "Northeast", schema.RegionRegion},
		{"United States", schema.RegionState, "United States", schema.RegionRegion},
		{"U.S. city average", schema.RegionRegion, "U.S. city average", schema.RegionRegion},
		{"Puerto Rico", schema.RegionState, "Puerto Rico", schema.RegionState},
		{"D.C.", schema.RegionRegion, "District of Columbia", schema.RegionState},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, typ := Classify(tt.in, tt.def)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantType, typ)
		})
	}
}

func TestExpandArea(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Dallas-Fort Worth-Arlington, TX", []string{"Texas"}},
		{"Philadelphia-Camden-Wilmington, PA-NJ-DE-MD", []string{"Pennsylvania", "New Jersey", "Delaware", "Maryland"}},
		{"Washington-Arlington-Alexandria, DC-VA-MD-WV", []string{"District of Columbia", "Virginia", "Maryland", "West Virginia"}},
		{"Urban Alaska", []string{"Alaska"}},
		{"URBAN HAWAII", []string{"Hawaii"}},
		{"Kansas City, MO-KS-MO", []string{"Missouri", "Kansas"}},
		{"Northeast", nil},
		{"U.S. city average", nil},
		{"Somewhere, XX", nil},
		{"Washington-Baltimore, D.C.-MD", []string{"District of Columbia", "Maryland"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandArea(tt.in))
		})
	}
}

func TestStateName(t *testing.T) {
	name, ok := StateName(" ny ")
	assert.True(t, ok)
	assert.Equal(t, "New York", name)

	name, ok = StateName("D.C.")
	assert.True(t, ok)
	assert.Equal(t, "District of Columbia", name)

	_, ok = StateName("XX")
	assert.False(t, ok)
}
