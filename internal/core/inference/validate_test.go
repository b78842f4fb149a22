package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-analysis-api/internal/pkg/common"
)

func validPayload() *Payload {
	return &Payload{
		Dishes: []DishItem{
			{
				Name: "fried rice",
				Type: "main",
				Ingredients: []IngredientItem{
					{Name: "rice", WeightG: 200},
					{Name: "egg", WeightG: 50},
				},
				QueryCandidates: []QueryCandidate{
					{Term: "fried rice", Granularity: "dish"},
					{Term: "rice", Granularity: "ingredient", SourceTerm: "rice"},
				},
			},
		},
	}
}

func TestValidateAcceptsCompletePayload(t *testing.T) {
	assert.NoError(t, Validate(validPayload()))
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Payload)
	}{
		{"no dishes", func(p *Payload) { p.Dishes = nil }},
		{"missing dish name", func(p *Payload) { p.Dishes[0].Name = "" }},
		{"missing ingredient name", func(p *Payload) { p.Dishes[0].Ingredients[0].Name = "" }},
		{"zero weight", func(p *Payload) { p.Dishes[0].Ingredients[0].WeightG = 0 }},
		{"negative weight", func(p *Payload) { p.Dishes[0].Ingredients[1].WeightG = -10 }},
		{"missing candidate term", func(p *Payload) { p.Dishes[0].QueryCandidates[0].Term = "" }},
		{"unknown granularity", func(p *Payload) { p.Dishes[0].QueryCandidates[0].Granularity = "brandname" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPayload()
			tc.mutate(p)
			err := Validate(p)
			require.Error(t, err)
			assert.True(t, common.IsValidationError(err))
		})
	}
}

func TestValidateNilPayload(t *testing.T) {
	err := Validate(nil)
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
}

func TestParsePayloadStrictDecode(t *testing.T) {
	good := []byte(`{"dishes":[{"name":"salad","ingredients":[{"name":"lettuce","weight_g":80}],"query_candidates":[]}]}`)
	p, err := ParsePayload(good)
	require.NoError(t, err)
	assert.Equal(t, "salad", p.Dishes[0].Name)

	// Unknown fields are a contract violation, not something to ignore.
	unknown := []byte(`{"dishes":[{"name":"salad","ingredients":[],"query_candidates":[],"confidence":0.9}]}`)
	_, err = ParsePayload(unknown)
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))

	malformed := []byte(`{"dishes":`)
	_, err = ParsePayload(malformed)
	assert.Error(t, err)
}

func TestParsePayloadRepairsRelaxedModelOutput(t *testing.T) {
	// Prose around the object and unquoted keys both show up in model
	// responses; the parser repairs them before the strict decode.
	wrapped := []byte("Here is the meal breakdown:\n" +
		`{dishes: [{name: "salad", ingredients: [{name: "lettuce", weight_g: 80}], query_candidates: []}]}` +
		"\nEnjoy!")
	p, err := ParsePayload(wrapped)
	require.NoError(t, err)
	assert.Equal(t, "salad", p.Dishes[0].Name)
	assert.Equal(t, 80.0, p.Dishes[0].Ingredients[0].WeightG)

	// Repair never rescues a genuine contract violation.
	unknown := []byte(`Result: {dishes: [{name: "salad", ingredients: [], query_candidates: [], confidence: 0.9}]}`)
	_, err = ParsePayload(unknown)
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
}
