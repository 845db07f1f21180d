package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openlongevity/longmap/internal/domain/problem"
)

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		text string
		want problem.Category
	}{
		{
			name: "telomere text",
			text: "Single-cell RNA sequencing mouse model for telomere attrition research",
			want: problem.CategoryTelomereAttrition,
		},
		{
			name: "mitochondrial text",
			text: "Oxidative stress and mitochondrial DNA mutations accumulate with age; mitophagy declines.",
			want: problem.CategoryMitochondrialDysfunction,
		},
		{
			name: "senescence text",
			text: "Senolytics clear senescent cells and reduce the SASP burden in aged tissue.",
			want: problem.CategoryCellularSenescence,
		},
		{
			name: "nutrient sensing text",
			text: "mTOR and AMPK respond to caloric restriction via insulin and IGF-1 signaling pathways",
			want: problem.CategoryDeregulatedNutrientSensing,
		},
		{
			name: "no keywords",
			text: "Quarterly budget review for the facilities committee.",
			want: problem.CategoryOther,
		},
		{
			name: "empty text",
			text: "",
			want: problem.CategoryOther,
		},
		{
			name: "case insensitive",
			text: "TELOMERASE reactivation restores TELOMERE length",
			want: problem.CategoryTelomereAttrition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func TestClassify_DistinctKeywordsNotOccurrences(t *testing.T) {
	c := New()

	// "telomere" repeated many times scores 1 (one distinct keyword);
	// a single mention each of two epigenetic keywords scores 2 and wins.
	text := "telomere telomere telomere telomere; epigenetic changes alter chromatin"
	assert.Equal(t, problem.CategoryEpigeneticAlterations, c.Classify(text))
}

func TestClassify_TieBreaksByDeclarationOrder(t *testing.T) {
	c := New()

	// One distinct keyword each for genomic_instability ("DNA damage") and
	// cellular_senescence ("senescence"); the first-declared category wins.
	text := "DNA damage is linked to senescence"
	assert.Equal(t, problem.CategoryGenomicInstability, c.Classify(text))
}

func TestSplitTitleDescription(t *testing.T) {
	t.Run("multi line", func(t *testing.T) {
		title, desc := SplitTitleDescription("Telomere dynamics\nA study of telomere length in aged mice.\nMore detail here.")
		assert.Equal(t, "Telomere dynamics", title)
		assert.Equal(t, "A study of telomere length in aged mice.\nMore detail here.", desc)
	})

	t.Run("single line multiple sentences", func(t *testing.T) {
		title, desc := SplitTitleDescription("Telomeres shorten with age. This limits cell division. Senescence follows.")
		assert.Equal(t, "Telomeres shorten with age", title)
		assert.Equal(t, "This limits cell division. Senescence follows.", desc)
	})

	t.Run("short single sentence", func(t *testing.T) {
		title, desc := SplitTitleDescription("Telomeres shorten with age")
		assert.Equal(t, "Telomeres shorten with age", title)
		assert.Equal(t, "Telomeres shorten with age", desc)
	})

	t.Run("long single sentence truncates title", func(t *testing.T) {
		long := ""
		for i := 0; i < 30; i++ {
			long += "telomere length "
		}
		title, desc := SplitTitleDescription(long)
		assert.Len(t, title, 203)
		assert.Contains(t, title, "...")
		assert.NotEmpty(t, desc)
	})
}
