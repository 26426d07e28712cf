package prompts

// Template names, one per AI-assisted operation.
const (
	TemplateInputProcessing = "input_processing"
	TemplateEstimate        = "estimate"
	TemplateAssets          = "assets"
	TemplateExecutionGuide  = "execution_guide"
	TemplatePMBreakdown     = "pm_breakdown"
	TemplateChat            = "chat"
)

var defaultTemplates = []*Template{
	{
		Name:      TemplateInputProcessing,
		Untrusted: []string{"raw_input"},
		Text: `# Client Brief Extraction

Extract a structured brief from the client input below.

{{raw_input}}

Return ONLY a JSON object with these keys:
- "mission": one-sentence statement of what the client wants to achieve ("" if unclear)
- "objectives": array of concrete objectives (empty array if none stated)
- "constraints": array of stated constraints (budget, timeline, compliance)
- "region": client's target region ("" if not stated)
- "missing_data": true when mission, budget, or region cannot be determined
- "missing_fields": array naming the fields that could not be determined`,
	},
	{
		Name:      TemplateEstimate,
		Untrusted: []string{"mission"},
		Text: `# Dual-Scenario Cost Estimate

Produce two cost scenarios for the engagement described below.

Mission: {{mission}}
Objectives: {{objectives}}
Constraints: {{constraints}}
Region: {{region}}
{{budget_instruction}}

Prior approved estimates for calibration (most recent first):
{{knowledge_context}}

Scenario A is the lean option, scenario B the full-scope option.

Return ONLY a JSON object with these keys:
- "scenario_a": {"name", "summary", "total_cost", "duration_weeks", "line_items": [{"label", "cost"}]}
- "scenario_b": same shape as scenario_a
- "roi_analysis": {"summary", "payback_months_a", "payback_months_b", "projected_revenue"}
- "estimate_markdown": a client-ready markdown document presenting both scenarios`,
	},
	{
		Name:      TemplateAssets,
		Untrusted: []string{"mission"},
		Text: `# Proposal Collateral

Write the proposal and research documents for this approved engagement.

Mission: {{mission}}
Selected scenario: {{selected_scenario}}
Estimate:
{{estimate_markdown}}

Relevant prior research (most recent first):
{{knowledge_context}}

Return ONLY a JSON object with these keys:
- "proposal_markdown": the client-facing proposal document
- "research_markdown": supporting market and technical research`,
	},
	{
		Name:      TemplateExecutionGuide,
		Untrusted: []string{"mission"},
		Text: `# Execution Guide ({{variant}})

Write a step-by-step execution guide for the engagement below, targeting a
{{variant}} delivery approach.

Mission: {{mission}}
Selected scenario: {{selected_scenario}}
Estimate:
{{estimate_markdown}}

Return the guide as markdown. Do not return JSON.`,
	},
	{
		Name:      TemplatePMBreakdown,
		Untrusted: []string{"mission"},
		Text: `# Project Management Breakdown

Break the engagement below into phases, tasks, and completion checklists.

Mission: {{mission}}
Selected scenario: {{selected_scenario}}
Execution guide:
{{execution_guide}}

Return ONLY a JSON object with this shape:
- "phases": [{"name", "duration_weeks", "tasks": [{"title", "owner", "checklist": [{"label", "done"}]}]}]
Every phase must have a name and at least one task; every task must have a title.`,
	},
	{
		Name:      TemplateChat,
		Untrusted: []string{"message"},
		Text: `# Proposal Assistant

You are assisting with an in-flight business proposal.

Project mission: {{mission}}
Current stage: {{stage}}

Client message:
{{message}}

Reply concisely and factually. Do not invent pricing beyond the recorded estimate.`,
	},
}
