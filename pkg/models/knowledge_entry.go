package models

import (
	"time"

	"github.com/google/uuid"
)

// Knowledge entry categories.
const (
	KnowledgeCategoryEstimate         = "estimate"
	KnowledgeCategoryResearch         = "research"
	KnowledgeCategoryApprovedEstimate = "approved_estimate"
	KnowledgeCategoryExecutionGuide   = "execution_guide"
)

// KnowledgeEntry is an immutable, append-only record of an approved prior
// output, indexed for retrieval into future prompts. Entries are created
// only after a human approval event and are never updated; an administrator
// may delete one individually.
type KnowledgeEntry struct {
	ID       uuid.UUID `json:"id"`
	Category string    `json:"category"`
	Content  string    `json:"content"`

	// Metadata
	SourceProjectID  uuid.UUID       `json:"source_project_id"`
	ScenarioSnapshot *Scenario       `json:"scenario_snapshot,omitempty"`
	SelectedScenario *ScenarioChoice `json:"selected_scenario,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
