package fundd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	schemaCreateLedger = "create_ledger.json"
	schemaContribution = "contribution.json"
	schemaDistribution = "distribution.json"
	schemaCreateStream = "create_stream.json"
	schemaWithdrawal   = "withdrawal.json"
	schemaTopUp        = "topup.json"
)

// Amount fields are strings so arbitrary precision survives JSON; their
// numeric rules are enforced by the engines.
var requestSchemas = map[string]string{
	schemaCreateLedger: `{
		"type": "object",
		"required": ["goal"],
		"additionalProperties": false,
		"properties": {
			"goal": {"type": "string", "minLength": 1},
			"policy": {"type": "string", "enum": ["", "any", "funded"]}
		}
	}`,
	schemaContribution: `{
		"type": "object",
		"required": ["contributor", "amount"],
		"additionalProperties": false,
		"properties": {
			"contributor": {"type": "string"},
			"amount": {"type": "string", "minLength": 1}
		}
	}`,
	schemaDistribution: `{
		"type": "object",
		"required": ["cost"],
		"additionalProperties": false,
		"properties": {
			"cost": {"type": "string", "minLength": 1}
		}
	}`,
	schemaCreateStream: `{
		"type": "object",
		"required": ["recipient", "deposit", "startBlock", "durationBlocks"],
		"additionalProperties": false,
		"properties": {
			"recipient": {"type": "string"},
			"deposit": {"type": "string", "minLength": 1},
			"startBlock": {"type": "integer", "minimum": 0},
			"durationBlocks": {"type": "integer"}
		}
	}`,
	schemaWithdrawal: `{
		"type": "object",
		"required": ["block", "amount"],
		"additionalProperties": false,
		"properties": {
			"block": {"type": "integer", "minimum": 0},
			"amount": {"type": "string", "minLength": 1}
		}
	}`,
	schemaTopUp: `{
		"type": "object",
		"required": ["block"],
		"additionalProperties": false,
		"properties": {
			"block": {"type": "integer", "minimum": 0},
			"deposit": {"type": "string"},
			"blocks": {"type": "integer"}
		}
	}`,
}

// validator checks request bodies against the compiled request schemas.
type validator struct {
	schemas map[string]*jsonschema.Schema
}

func newValidator() (*validator, error) {
	compiler := jsonschema.NewCompiler()
	for name, doc := range requestSchemas {
		if err := compiler.AddResource(name, strings.NewReader(doc)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}
	v := &validator{schemas: make(map[string]*jsonschema.Schema, len(requestSchemas))}
	for name := range requestSchemas {
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// decode validates body against the named schema and unmarshals it into dst.
func (v *validator) decode(name string, body []byte, dst any) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %s", name)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrBadRequest, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, validationMessage(err))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func validationMessage(err error) string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	location := leaf.InstanceLocation
	if location == "" {
		location = "/"
	}
	return fmt.Sprintf("%s: %s", location, leaf.Message)
}
