package internal

import (
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	analysisSchema     any
	analysisSchemaOnce sync.Once
	scriptSchema       any
	scriptSchemaOnce   sync.Once
)

// generateSchema reflects a strict JSON schema (no refs, no extra properties) for v
func generateSchema(v any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}

// AnalysisSchema is the response schema declared for transcript analysis
func AnalysisSchema() any {
	analysisSchemaOnce.Do(func() {
		analysisSchema = generateSchema(&AnalysisResult{})
	})
	return analysisSchema
}

// ScriptSchema is the response schema declared for script generation
func ScriptSchema() any {
	scriptSchemaOnce.Do(func() {
		scriptSchema = generateSchema(&GeneratedScript{})
	})
	return scriptSchema
}
