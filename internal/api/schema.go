package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/marcus/taskboard/internal/validate"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Request body schemas. They check shape and types; field rules and their
// messages live in the validate package.
var (
	registerSchema   = mustCompileSchema("register.json")
	loginSchema      = mustCompileSchema("login.json")
	todoCreateSchema = mustCompileSchema("todo_create.json")
	todoUpdateSchema = mustCompileSchema("todo_update.json")
)

func mustCompileSchema(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("read schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	url := "mem://schemas/" + name
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return schema
}

// decodeBody reads a JSON body, checks it against schema and decodes it
// into dst. On failure it writes the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, dst any) bool {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "failed to read body")
		return false
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return false
	}
	if err := schema.Validate(doc); err != nil {
		writeFieldErrors(w, ErrCodeBadRequest, schemaFieldErrors(err))
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return false
	}
	return true
}

// schemaFieldErrors flattens a schema validation error into leaf field
// errors keyed by the offending property.
func schemaFieldErrors(err error) []validate.FieldError {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []validate.FieldError{{Field: "body", Message: err.Error()}}
	}
	var out []validate.FieldError
	collectSchemaErrors(ve, &out)
	if len(out) == 0 {
		out = append(out, validate.FieldError{Field: "body", Message: ve.Message})
	}
	return out
}

func collectSchemaErrors(ve *jsonschema.ValidationError, out *[]validate.FieldError) {
	if len(ve.Causes) == 0 {
		field := strings.TrimPrefix(strings.TrimPrefix(ve.InstanceLocation, "#"), "/")
		if field == "" {
			field = "body"
		}
		*out = append(*out, validate.FieldError{Field: field, Message: ve.Message})
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, out)
	}
}
