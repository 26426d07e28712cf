package services

import (
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/forgelane/proposal-engine/pkg/models"
)

// FallbackResponder produces deterministic synthetic content when every
// provider in a ranked chain has failed. Variant selection hashes the
// project identity together with the stage, so the same project always
// sees the same text while different projects see some variety. The
// content carries only deliberately generic placeholder figures.
type FallbackResponder struct{}

// NewFallbackResponder creates a FallbackResponder.
func NewFallbackResponder() *FallbackResponder {
	return &FallbackResponder{}
}

// Respond returns the fallback markdown for the given project and stage.
func (f *FallbackResponder) Respond(projectID uuid.UUID, stage models.Stage) string {
	pool, ok := fallbackPools[stage]
	if !ok {
		pool = fallbackPools[models.StageInputProcessing]
	}
	return pool[f.variant(projectID, stage, len(pool))]
}

// Scenarios returns a generic pair of cost scenarios for use when estimate
// generation is unavailable. Figures are placeholders, flagged as such in
// each summary.
func (f *FallbackResponder) Scenarios(projectID uuid.UUID) (*models.Scenario, *models.Scenario) {
	a := &models.Scenario{
		Name:          "Scenario A (Lean)",
		Summary:       "Placeholder estimate generated offline; figures are indicative only and will be replaced once live estimation is available.",
		TotalCost:     10000,
		DurationWeeks: 6,
	}
	b := &models.Scenario{
		Name:          "Scenario B (Full Scope)",
		Summary:       "Placeholder estimate generated offline; figures are indicative only and will be replaced once live estimation is available.",
		TotalCost:     25000,
		DurationWeeks: 12,
	}
	return a, b
}

func (f *FallbackResponder) variant(projectID uuid.UUID, stage models.Stage, n int) int {
	h := fnv.New32a()
	h.Write(projectID[:])
	h.Write([]byte{byte(stage)})
	return int(h.Sum32() % uint32(n))
}

const fallbackNotice = "> This content was generated offline because no AI provider was reachable. Regenerate this stage to replace it with a live result.\n\n"

// Each stage keeps at least two variants so the synthetic output is not
// byte-identical across the whole fleet.
var fallbackPools = map[models.Stage][]string{
	models.StageInputProcessing: {
		fallbackNotice + "## Project Brief (Preliminary)\n\nWe have received your input and recorded it verbatim. A structured brief could not be produced automatically; an analyst review or a regeneration pass is required before estimation can begin.",
		fallbackNotice + "## Project Brief (Pending)\n\nYour submission is safely stored. Automatic brief extraction is currently unavailable, so mission, objectives, and constraints still need to be confirmed before we can prepare an estimate.",
	},
	models.StageAssets: {
		fallbackNotice + "## Proposal Outline\n\nA full proposal document could not be drafted automatically. This outline covers the standard sections we deliver: background, approach, scope, timeline, and commercial terms. Each section will be filled in during regeneration.",
		fallbackNotice + "## Proposal Draft Placeholder\n\nThe proposal and research documents for this project are pending. The approved estimate remains valid; supporting materials will be produced as soon as document generation is back online.",
	},
	models.StageExecutionGuides: {
		fallbackNotice + "## Execution Guide (Generic)\n\n1. Confirm scope and success metrics with the client.\n2. Stand up the core environment and access.\n3. Deliver in weekly increments with a demo at the end of each week.\n4. Close with a handover session and documentation.",
		fallbackNotice + "## Execution Guide (Generic)\n\n- Kick off with a scope and risk review.\n- Break the work into two-week milestones.\n- Review progress against the approved estimate at every milestone.\n- Finish with acceptance testing and a structured handover.",
	},
	models.StagePMBreakdown: {
		fallbackNotice + "## Work Breakdown (Generic)\n\n**Phase 1: Discovery** covering requirements and planning. **Phase 2: Build** covering implementation in increments. **Phase 3: Delivery** covering testing, acceptance, and handover. Durations follow the approved scenario once live planning is available.",
		fallbackNotice + "## Work Breakdown (Generic)\n\nThree phases are assumed: discovery, build, and delivery. Task-level detail, checklists, and durations will be generated when planning providers are reachable again.",
	},
	models.StageCompletion: {
		fallbackNotice + "## Completion Summary\n\nThe project has reached its final stage. A tailored completion summary is pending regeneration.",
		fallbackNotice + "## Completion Summary\n\nAll stages are closed out. The detailed wrap-up report will be produced on the next regeneration pass.",
	},
}
