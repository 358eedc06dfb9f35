package http

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Endpoint request schemas. Validation runs before decoding so malformed
// bodies are rejected with a field-level message instead of a zero-value
// surprise deeper in the lifecycle.

const hexWordPattern = `^(0[xX])?[0-9a-fA-F]{64}$`
const hexBlobPattern = `^(0[xX])?([0-9a-fA-F]{2})*$`

var (
	createRequestSchema = mustCompileSchema(`{
		"type": "object",
		"required": ["owner", "requestId", "amount"],
		"properties": {
			"owner": {"type": "string", "pattern": "` + hexWordPattern + `"},
			"requestId": {"type": "integer", "minimum": 0},
			"amount": {"type": "integer", "minimum": 0}
		}
	}`)

	createPrivateRequestSchema = mustCompileSchema(`{
		"type": "object",
		"required": ["owner", "requestId", "amountCommitment", "rangeProof", "minAmount", "maxAmount", "ephemeralPubKey"],
		"properties": {
			"owner": {"type": "string", "pattern": "` + hexWordPattern + `"},
			"requestId": {"type": "integer", "minimum": 0},
			"amountCommitment": {"type": "string", "pattern": "` + hexWordPattern + `"},
			"rangeProof": {"type": "string", "pattern": "` + hexBlobPattern + `"},
			"minAmount": {"type": "integer", "minimum": 0},
			"maxAmount": {"type": "integer", "minimum": 0},
			"ephemeralPubKey": {"type": "string", "pattern": "` + hexWordPattern + `"}
		}
	}`)

	settleSchema = mustCompileSchema(`{
		"type": "object",
		"required": ["owner", "requestId", "payer"],
		"properties": {
			"owner": {"type": "string", "pattern": "` + hexWordPattern + `"},
			"requestId": {"type": "integer", "minimum": 0},
			"payer": {"type": "string", "pattern": "` + hexWordPattern + `"}
		}
	}`)

	settlePrivateSchema = mustCompileSchema(`{
		"type": "object",
		"required": ["owner", "requestId", "payer", "amount", "paymentProof"],
		"properties": {
			"owner": {"type": "string", "pattern": "` + hexWordPattern + `"},
			"requestId": {"type": "integer", "minimum": 0},
			"payer": {"type": "string", "pattern": "` + hexWordPattern + `"},
			"amount": {"type": "integer", "minimum": 0},
			"paymentProof": {"type": "string", "pattern": "` + hexBlobPattern + `"}
		}
	}`)

	sweepSchema = mustCompileSchema(`{
		"type": "object",
		"required": ["owner", "requestId", "receiver"],
		"properties": {
			"owner": {"type": "string", "pattern": "` + hexWordPattern + `"},
			"requestId": {"type": "integer", "minimum": 0},
			"receiver": {"type": "string", "pattern": "` + hexWordPattern + `"}
		}
	}`)

	sweepPrivateSchema = mustCompileSchema(`{
		"type": "object",
		"required": ["owner", "requestId", "receiver", "ownershipProof", "ephemeralSecret"],
		"properties": {
			"owner": {"type": "string", "pattern": "` + hexWordPattern + `"},
			"requestId": {"type": "integer", "minimum": 0},
			"receiver": {"type": "string", "pattern": "` + hexWordPattern + `"},
			"ownershipProof": {"type": "string", "pattern": "` + hexBlobPattern + `"},
			"ephemeralSecret": {"type": "string", "pattern": "` + hexWordPattern + `"}
		}
	}`)
)

type compiledSchema struct {
	schema *gojsonschema.Schema
}

func mustCompileSchema(source string) *compiledSchema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("http: compile schema: %v", err))
	}
	return &compiledSchema{schema: schema}
}

func (c *compiledSchema) validate(body []byte) error {
	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("request body is not valid JSON")
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid request body: %s", strings.Join(msgs, "; "))
}
