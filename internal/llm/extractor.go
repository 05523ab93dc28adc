// Package llm - extractor.go renders output-format instructions for structured generation.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema describes the JSON object a model is asked to produce.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "AnalysisResult")
	Description string        // Task preamble placed before the format block
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint shown to the model, e.g. `"string"` or `["string"]`
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildFormatInstruction renders the "return only this JSON" block for a schema.
func BuildFormatInstruction(schema ExtractionSchema) string {
	var sb strings.Builder

	if schema.Description != "" {
		sb.WriteString(schema.Description)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Return ONLY valid JSON in this exact format:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = `"string"`
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")
	sb.WriteString("- Use empty strings or empty arrays when information is not available.\n")

	return sb.String()
}
