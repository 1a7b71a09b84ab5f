// Package schema wraps github.com/santhosh-tekuri/jsonschema/v5 around the
// engine's embedded JSON schemas, enforced at the validation points named in
// §4.4 and §6: task-definition files, bundles, result files, and the
// capability/physical maps produced by planning phases.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Dowwie/tasker/internal/taskerr"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Name identifies one of the engine's built-in schemas.
type Name string

const (
	TaskDefinition Name = "task-definition"
	Bundle         Name = "bundle"
	Result         Name = "result"
	CapabilityMap  Name = "capability-map"
	PhysicalMap    Name = "physical-map"
)

var fileFor = map[Name]string{
	TaskDefinition: "task-definition.schema.json",
	Bundle:         "bundle.schema.json",
	Result:         "result.schema.json",
	CapabilityMap:  "capability-map.schema.json",
	PhysicalMap:    "physical-map.schema.json",
}

var compiled = map[Name]*jsonschema.Schema{}

func compile(name Name) (*jsonschema.Schema, error) {
	if s, ok := compiled[name]; ok {
		return s, nil
	}
	file, ok := fileFor[name]
	if !ok {
		return nil, taskerr.New(taskerr.CategorySchema, taskerr.CodeUnknownSchema,
			fmt.Sprintf("unknown schema %q", name), "schema", string(name))
	}

	data, err := schemaFS.ReadFile("schemas/" + file)
	if err != nil {
		return nil, fmt.Errorf("reading embedded schema %s: %w", file, err)
	}

	c := jsonschema.NewCompiler()
	url := "https://tasker/schemas/" + file
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("loading schema %s: %w", file, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", file, err)
	}
	compiled[name] = s
	return s, nil
}

// ValidateBytes validates raw JSON bytes against the named schema.
func ValidateBytes(name Name, data []byte) error {
	s, err := compile(name)
	if err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return taskerr.Wrap(taskerr.CategorySchema, taskerr.CodeValidationFailed, err,
			"schema", string(name))
	}

	if err := s.Validate(v); err != nil {
		return taskerr.New(taskerr.CategorySchema, taskerr.CodeValidationFailed,
			err.Error(), "schema", string(name))
	}
	return nil
}

// ValidateFile validates a file on disk against the named schema.
func ValidateFile(name Name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return taskerr.Wrap(taskerr.CategoryIO, taskerr.CodeReadFail, err, "path", path)
	}
	if err := ValidateBytes(name, data); err != nil {
		if te, ok := taskerr.As(err); ok {
			te.Context["path"] = path
		}
		return err
	}
	return nil
}
