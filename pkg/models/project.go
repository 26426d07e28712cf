// Package models contains domain types for proposal-engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Stage identifies one of the five ordered phases of the proposal lifecycle.
type Stage int

const (
	StageInputProcessing Stage = 1
	StageAssets          Stage = 2
	StageExecutionGuides Stage = 3
	StagePMBreakdown     Stage = 4
	StageCompletion      Stage = 5
)

// String returns a human-readable name for the stage.
func (s Stage) String() string {
	switch s {
	case StageInputProcessing:
		return "input_processing"
	case StageAssets:
		return "assets"
	case StageExecutionGuides:
		return "execution_guides"
	case StagePMBreakdown:
		return "pm_breakdown"
	case StageCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

// IsValid reports whether the stage is within the 1..5 graph.
func (s Stage) IsValid() bool {
	return s >= StageInputProcessing && s <= StageCompletion
}

// CanTransitionTo reports whether advancing from this stage to target is
// allowed. The graph is linear with one shortcut: stage 4 may jump straight
// to 5 via final approval. Regeneration never moves the stage and is not
// expressed here.
func (s Stage) CanTransitionTo(target Stage) bool {
	if !s.IsValid() || !target.IsValid() {
		return false
	}
	if s == StageCompletion {
		return false // Terminal
	}
	return target == s+1
}

// ProjectStatus represents the lifecycle status of a project.
type ProjectStatus string

const (
	StatusDraft             ProjectStatus = "draft"
	StatusEstimateGenerated ProjectStatus = "estimate_generated"
	StatusAssetsReady       ProjectStatus = "assets_ready"
	StatusEmailSent         ProjectStatus = "email_sent"
	StatusAccepted          ProjectStatus = "accepted"
	StatusInProgress        ProjectStatus = "in_progress"
	StatusCompleted         ProjectStatus = "completed"
)

// ValidProjectStatuses contains all valid status values.
var ValidProjectStatuses = []ProjectStatus{
	StatusDraft,
	StatusEstimateGenerated,
	StatusAssetsReady,
	StatusEmailSent,
	StatusAccepted,
	StatusInProgress,
	StatusCompleted,
}

// IsValidProjectStatus checks if the given status is valid.
func IsValidProjectStatus(s ProjectStatus) bool {
	for _, v := range ValidProjectStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ScenarioChoice identifies which cost scenario the client selected.
type ScenarioChoice string

const (
	ScenarioChoiceA ScenarioChoice = "A"
	ScenarioChoiceB ScenarioChoice = "B"
)

// Brief holds the structured client brief extracted from raw input.
type Brief struct {
	Mission     string   `json:"mission"`
	Objectives  []string `json:"objectives"`
	Constraints []string `json:"constraints"`
	Region      string   `json:"region,omitempty"`
	MissingData bool     `json:"missing_data"`
	// MissingFields names the brief fields extraction could not fill.
	MissingFields []string `json:"missing_fields,omitempty"`
}

// Sufficient reports whether the brief carries enough data for estimate
// generation to be attempted.
func (b *Brief) Sufficient() bool {
	return b != nil && !b.MissingData && b.Mission != ""
}

// Project is the central aggregate. It owns all stage-derived content; every
// mutation flows through the workflow controller.
type Project struct {
	ID          uuid.UUID `json:"id"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email,omitempty"`

	CurrentStage Stage         `json:"current_stage"`
	Status       ProjectStatus `json:"status"`

	RawInput string   `json:"raw_input"`
	Brief    *Brief   `json:"brief,omitempty"`
	Budget   *float64 `json:"budget,omitempty"`

	ScenarioA        *Scenario       `json:"scenario_a,omitempty"`
	ScenarioB        *Scenario       `json:"scenario_b,omitempty"`
	SelectedScenario *ScenarioChoice `json:"selected_scenario,omitempty"`
	ROIAnalysis      *ROIAnalysis    `json:"roi_analysis,omitempty"`

	EstimateMarkdown string     `json:"estimate_markdown,omitempty"`
	ProposalMarkdown string     `json:"proposal_markdown,omitempty"`
	ResearchMarkdown string     `json:"research_markdown,omitempty"`
	HighCodeGuide    string     `json:"highcode_guide,omitempty"`
	NoCodeGuide      string     `json:"nocode_guide,omitempty"`
	PMBreakdown      *Breakdown `json:"pm_breakdown,omitempty"`

	ProposalPDFURL  string `json:"proposal_pdf_url,omitempty"`
	ReportPDFURL    string `json:"report_pdf_url,omitempty"`
	PresentationURL string `json:"presentation_url,omitempty"`

	// DegradedOps lists operations whose persisted content came from the
	// fallback responder rather than a live provider.
	DegradedOps []string `json:"degraded_ops,omitempty"`

	FinalApprovedAt *time.Time `json:"final_approved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasScenarios reports whether both cost scenarios exist.
func (p *Project) HasScenarios() bool {
	return p.ScenarioA != nil && p.ScenarioB != nil
}

// ScenarioForChoice returns the scenario matching the choice, or nil.
func (p *Project) ScenarioForChoice(choice ScenarioChoice) *Scenario {
	switch choice {
	case ScenarioChoiceA:
		return p.ScenarioA
	case ScenarioChoiceB:
		return p.ScenarioB
	default:
		return nil
	}
}

// MarkDegraded records that the named operation's content is fallback output.
// Idempotent per operation.
func (p *Project) MarkDegraded(operation string) {
	for _, op := range p.DegradedOps {
		if op == operation {
			return
		}
	}
	p.DegradedOps = append(p.DegradedOps, operation)
}

// ClearDegraded removes the degraded marker for an operation, typically after
// a successful regeneration replaced the fallback content.
func (p *Project) ClearDegraded(operation string) {
	out := p.DegradedOps[:0]
	for _, op := range p.DegradedOps {
		if op != operation {
			out = append(out, op)
		}
	}
	p.DegradedOps = out
	if len(p.DegradedOps) == 0 {
		p.DegradedOps = nil
	}
}

// IsDegraded reports whether the named operation's content is fallback output.
func (p *Project) IsDegraded(operation string) bool {
	for _, op := range p.DegradedOps {
		if op == operation {
			return true
		}
	}
	return false
}

// Validate checks cross-field invariants that must hold for any persisted
// project.
func (p *Project) Validate() error {
	if !p.CurrentStage.IsValid() {
		return errInvalid("current_stage", "must be within 1..5")
	}
	if !IsValidProjectStatus(p.Status) {
		return errInvalid("status", "unknown status value")
	}
	if p.Status == StatusCompleted {
		if p.CurrentStage != StageCompletion {
			return errInvalid("status", "completed requires stage 5")
		}
		if p.FinalApprovedAt == nil {
			return errInvalid("status", "completed requires a final approval event")
		}
	}
	if p.SelectedScenario != nil && !p.HasScenarios() {
		return errInvalid("selected_scenario", "cannot select before scenarios exist")
	}
	return nil
}
