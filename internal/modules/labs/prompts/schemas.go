package prompts

// SchemaNameLab is the schema name sent with every lab request.
const SchemaNameLab = "personalized_lab"

func StringArraySchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}

func StringOrNullSchema() map[string]any {
	return map[string]any{"type": []any{"string", "null"}}
}

func EnumSchema(values ...string) map[string]any {
	arr := make([]any, 0, len(values))
	for _, v := range values {
		arr = append(arr, v)
	}
	return map[string]any{"type": "string", "enum": arr}
}

// Strict schemas require every property listed in required and no extras.
// Numeric ranges (hints, estimated_time, list sizes) are enforced by the validator.

func CaseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input":    map[string]any{"type": "string"},
			"expected": map[string]any{"type": "string"},
		},
		"required":             []string{"input", "expected"},
		"additionalProperties": false,
	}
}

func ExerciseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type":         EnumSchema("guided", "challenge", "exploration"),
			"hints":        map[string]any{"type": "integer"},
			"description":  map[string]any{"type": "string"},
			"starter_code": map[string]any{"type": "string"},
			"solution":     map[string]any{"type": "string"},
			"test_cases": map[string]any{
				"type":  "array",
				"items": CaseSchema(),
			},
		},
		"required":             []string{"type", "hints", "description", "starter_code", "solution", "test_cases"},
		"additionalProperties": false,
	}
}

func LabSectionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"concept":           map[string]any{"type": "string"},
			"title":             map[string]any{"type": "string"},
			"difficulty":        EnumSchema("easy", "medium", "hard"),
			"scaffolding_level": EnumSchema("low", "medium", "high"),
			"exercises": map[string]any{
				"type":  "array",
				"items": ExerciseSchema(),
			},
			"learning_objectives": StringArraySchema(),
			"background":          map[string]any{"type": "string"},
		},
		"required": []string{
			"concept", "title", "difficulty", "scaffolding_level",
			"exercises", "learning_objectives", "background",
		},
		"additionalProperties": false,
	}
}

func LabArtifactSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":          map[string]any{"type": "string"},
			"topic":          map[string]any{"type": "string"},
			"difficulty":     EnumSchema("easy", "medium", "hard"),
			"estimated_time": map[string]any{"type": "integer"},
			"sections": map[string]any{
				"type":  "array",
				"items": LabSectionSchema(),
			},
			"prerequisites":           StringArraySchema(),
			"technologies":            StringArraySchema(),
			"personalization_context": StringOrNullSchema(),
		},
		"required": []string{
			"title", "topic", "difficulty", "estimated_time", "sections",
			"prerequisites", "technologies", "personalization_context",
		},
		"additionalProperties": false,
	}
}
