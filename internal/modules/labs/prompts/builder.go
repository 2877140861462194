package prompts

import (
	"math"
	"strings"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
)

const (
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
)

type Options struct {
	Model string
	// Temperature nil means DefaultTemperature; an explicit 0 is kept.
	Temperature *float64
	MaxTokens   int
}

func (o Options) params() labs.ModelParameters {
	p := labs.ModelParameters{
		Model:       strings.TrimSpace(o.Model),
		Temperature: DefaultTemperature,
		MaxTokens:   o.MaxTokens,
	}
	if o.Temperature != nil {
		p.Temperature = *o.Temperature
	}
	if p.Model == "" {
		p.Model = DefaultModel
	}
	if math.IsNaN(p.Temperature) || p.Temperature < 0 || p.Temperature > 2 {
		p.Temperature = DefaultTemperature
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	return p
}

var themeHints = []struct {
	keywords []string
	hint     string
}{
	{[]string{"gaming", "game", "esports"}, "leaderboards, player profiles, match histories and in-game inventories"},
	{[]string{"music", "song", "band"}, "playlists, tracks, artists and listening history"},
	{[]string{"sport", "football", "soccer", "basketball"}, "team rosters, match statistics and league standings"},
	{[]string{"finance", "banking", "trading", "stock"}, "portfolios, transactions, accounts and price feeds"},
	{[]string{"cooking", "recipe", "food", "baking"}, "recipes, ingredients, pantry stock and meal plans"},
	{[]string{"movie", "film", "cinema"}, "watchlists, ratings, reviews and cast lists"},
}

// ThemeHint maps a personalization context to concrete entities the exercises can use.
func ThemeHint(personalization string) string {
	p := strings.ToLower(strings.TrimSpace(personalization))
	if p == "" {
		return ""
	}
	for _, th := range themeHints {
		for _, kw := range th.keywords {
			if strings.Contains(p, kw) {
				return th.hint
			}
		}
	}
	return "domain-specific entities a learner interested in " + strings.TrimSpace(personalization) + " would recognize"
}

// Build renders the lab request for one concept. It is pure: the same inputs
// always produce the same request.
func Build(concept labs.Concept, personalization string, opts Options) labs.GenerationRequest {
	personalization = strings.TrimSpace(personalization)
	topic := strings.TrimSpace(concept.TopicName)
	if topic == "" {
		topic = "Unknown"
	}
	in := Input{
		ConceptName:       strings.TrimSpace(concept.Name),
		ConceptDefinition: strings.TrimSpace(concept.Definition),
		Topic:             topic,
		TextEvidence:      strings.TrimSpace(concept.TextEvidence),
		Personalization:   personalization,
		ThemeHint:         ThemeHint(personalization),
	}
	return labs.GenerationRequest{
		Concept:                concept,
		PersonalizationContext: personalization,
		Params:                 opts.params(),
		System:                 labTemplate.System(in),
		User:                   labTemplate.User(in),
		SchemaName:             labTemplate.SchemaName,
		Schema:                 labTemplate.Schema(),
	}
}

var labTemplate = mustTemplate(Spec{
	Name:       "lab_generation",
	Version:    1,
	SchemaName: SchemaNameLab,
	Schema:     LabArtifactSchema,
	System: `
You are an expert programming instructor who designs hands-on coding labs.
Each lab teaches exactly one concept through runnable exercises with starter code, a reference solution and test cases.
Keep every field inside these bounds:
- difficulty: easy | medium | hard
- scaffolding_level: low | medium | high
- estimated_time: 15-180 minutes
- sections: 1-3, each with 1-3 exercises
- exercise type: guided | challenge | exploration
- hints: 0-5
Return JSON only.`,
	User: `
Concept: {{.ConceptName}}
Topic: {{.Topic}}
Definition: {{.ConceptDefinition}}
{{- if .TextEvidence}}
Source evidence: {{.TextEvidence}}
{{- end}}
{{- if .Personalization}}
Personalization: {{.Personalization}}

Personalize the lab for a learner interested in "{{.Personalization}}".
Thread that interest through the title, scenarios, variable names and test data.
Use concrete entities such as {{.ThemeHint}}.
Set personalization_context to "{{.Personalization}}".
{{- else}}
Personalization: none

Use neutral, realistic scenarios. Set personalization_context to null.
{{- end}}

Design a lab that:
- starts from the definition above and builds toward applying it in code,
- uses guided exercises for fundamentals and challenge or exploration exercises for depth,
- lists prerequisites and technologies a learner needs before starting.`,
})
