// Package schemas embeds the JSON schemas of the files pplstat reads.
package schemas

import _ "embed"

// ScoredResultsSchemaJSON describes a scored-result file: a JSON array of
// per-response records carrying loss and perplexity.
//
//go:embed scored_results.schema.json
var ScoredResultsSchemaJSON string

// ConfigSchemaJSON describes the .pplstat.yaml project configuration.
//
//go:embed config.schema.json
var ConfigSchemaJSON string
