package llm

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	cinSchema    = mustLoadSchema("schemas/cin.json")
	permisSchema = mustLoadSchema("schemas/permis.json")
	grisSchema   = mustCompileSchema("schemas/gris.json")
)

// mustLoadSchema decodes an embedded schema into the generic form the
// model provider expects for structured output.
func mustLoadSchema(name string) map[string]any {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("llm: missing embedded schema %s: %v", name, err))
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		panic(fmt.Sprintf("llm: invalid embedded schema %s: %v", name, err))
	}
	return schema
}

// mustCompileSchema compiles an embedded schema for server-side validation
// of free-form model output.
func mustCompileSchema(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("llm: missing embedded schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(string(raw))); err != nil {
		panic(fmt.Sprintf("llm: invalid embedded schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("llm: compiling embedded schema %s: %v", name, err))
	}
	return schema
}
