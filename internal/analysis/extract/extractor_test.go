package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlongevity/longmap/internal/domain/capability"
)

func TestExtract_FindsMeasurementTool(t *testing.T) {
	e := New()
	caps := e.Extract("We performed single-cell RNA sequencing on aged mouse hippocampus tissue.")

	require.NotEmpty(t, caps)
	var found *capability.Capability
	for _, c := range caps {
		if c.Type == capability.TypeMeasurementTool {
			found = c
			break
		}
	}
	require.NotNil(t, found)
	assert.Contains(t, strings.ToLower(found.Name), "single-cell rna sequencing")
}

func TestExtract_NoMatchesIsEmptyNotError(t *testing.T) {
	e := New()
	assert.Empty(t, e.Extract(""))
	assert.Empty(t, e.Extract("zzz qqq xxx"))
}

func TestExtract_NameLengthInvariant(t *testing.T) {
	e := New()
	texts := []string{
		"We performed single-cell RNA sequencing and mass spectrometry on the mouse model.",
		"An advanced machine learning pipeline with a public dataset and a standard protocol.",
		"assay assay assay",
		"pcr",
	}
	for _, text := range texts {
		for _, c := range e.Extract(text) {
			assert.GreaterOrEqual(t, len(c.Name), 4, "name %q too short", c.Name)
		}
	}
}

func TestExtract_FillsEstimates(t *testing.T) {
	e := New()
	caps := e.Extract("A zebrafish model of telomere attrition.")

	require.NotEmpty(t, caps)
	for _, c := range caps {
		assert.Greater(t, c.EstimatedCost, 0.0)
		assert.Greater(t, c.EstimatedTime, 0)
		assert.Greater(t, c.ComplexityScore, 0.0)
		assert.LessOrEqual(t, c.ComplexityScore, 1.0)
	}
}

func TestEstimateRequirements_BaseTable(t *testing.T) {
	tests := []struct {
		typ        capability.Type
		wantCost   float64
		wantMonths int
	}{
		{capability.TypeMeasurementTool, 50_000, 6},
		{capability.TypeModelSystem, 100_000, 12},
		{capability.TypeDataset, 20_000, 3},
		{capability.TypeComputationalMethod, 50_000, 6},
		{capability.TypeSoftware, 100_000, 12},
		{capability.TypeHardware, 200_000, 18},
		{capability.TypeProtocol, 10_000, 2},
		{capability.TypeInfrastructure, 500_000, 24},
		{capability.TypeOther, 50_000, 6},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			c, err := capability.New("some capability", "plain description", tt.typ)
			require.NoError(t, err)
			cost, months := estimateRequirements(c)
			assert.Equal(t, tt.wantCost, cost)
			assert.Equal(t, tt.wantMonths, months)
		})
	}
}

func TestEstimateRequirements_ComplexityAdjustment(t *testing.T) {
	c, err := capability.New("novel imaging rig", "a novel cutting-edge approach", capability.TypeMeasurementTool)
	require.NoError(t, err)
	cost, months := estimateRequirements(c)
	assert.Equal(t, 75_000.0, cost)
	assert.Equal(t, 7, months) // 6 * 1.3 truncated
}

func TestEstimateComplexity(t *testing.T) {
	c, err := capability.New("infra", "short", capability.TypeInfrastructure)
	require.NoError(t, err)
	assert.Equal(t, 0.9, estimateComplexity(c))

	// Long description bumps by 0.1 but never exceeds 1.0.
	c.Description = strings.Repeat("x", 501)
	assert.Equal(t, 1.0, estimateComplexity(c))

	d, err := capability.New("dataset", strings.Repeat("x", 501), capability.TypeDataset)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, estimateComplexity(d), 1e-9)
}

func TestDeduplicate_SubstringOverlap(t *testing.T) {
	mk := func(name string) *capability.Capability {
		c, err := capability.New(name, "d", capability.TypeOther)
		if err != nil {
			t.Fatal(err)
		}
		return c
	}

	in := []*capability.Capability{
		mk("mouse model"),
		mk("aged mouse model"),      // contains "mouse model" -> dropped
		mk("mouse"),                 // substring of "mouse model" -> dropped
		mk("flow cytometry"),        // unrelated -> kept
	}
	out := Deduplicate(in)
	require.Len(t, out, 2)
	assert.Equal(t, "mouse model", out[0].Name)
	assert.Equal(t, "flow cytometry", out[1].Name)
}

func TestDeduplicate_OrderDependent(t *testing.T) {
	mk := func(name string) *capability.Capability {
		c, err := capability.New(name, "d", capability.TypeOther)
		if err != nil {
			t.Fatal(err)
		}
		return c
	}

	// Reversing the input keeps the other family member: first wins.
	out := Deduplicate([]*capability.Capability{mk("aged mouse model"), mk("mouse model")})
	require.Len(t, out, 1)
	assert.Equal(t, "aged mouse model", out[0].Name)
}

func TestDeduplicate_Idempotent(t *testing.T) {
	e := New()
	caps := e.Extract("We used flow cytometry, a mouse model, flow cytometry panels, and a public dataset repository.")

	once := Deduplicate(caps)
	twice := Deduplicate(once)
	require.Equal(t, len(once), len(twice))
	for i := range once {
		assert.Equal(t, once[i].Name, twice[i].Name)
	}
}

func TestDeduplicate_Empty(t *testing.T) {
	assert.Nil(t, Deduplicate(nil))
	assert.Nil(t, Deduplicate([]*capability.Capability{}))
}
