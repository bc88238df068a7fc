package models

import "encoding/json"

const ActionQueryElasticsearch = "query_elasticsearch"

// Plan is the planner LLM output.
type Plan struct {
	Steps []PlanStep `json:"steps"`
}

type PlanStep struct {
	Action      string                     `json:"action"`
	Args        map[string]json.RawMessage `json:"args"`
	Description string                     `json:"description,omitempty"`
}
