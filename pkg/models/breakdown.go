package models

import "fmt"

// Breakdown is the phased PM task breakdown generated at stage 4.
// Provider output that does not satisfy Validate is treated as a provider
// failure, never as valid content.
type Breakdown struct {
	Phases []Phase `json:"phases"`
}

// Phase is one delivery phase with its tasks.
type Phase struct {
	Name          string `json:"name"`
	DurationWeeks int    `json:"duration_weeks"`
	Tasks         []Task `json:"tasks"`
}

// Task is one unit of work inside a phase.
type Task struct {
	Title     string          `json:"title"`
	Owner     string          `json:"owner,omitempty"`
	Checklist []ChecklistItem `json:"checklist,omitempty"`
}

// ChecklistItem is one verifiable completion criterion for a task.
type ChecklistItem struct {
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// Validate checks the breakdown for structural completeness: at least one
// phase, each phase named with at least one task, each task titled.
func (b *Breakdown) Validate() error {
	if b == nil || len(b.Phases) == 0 {
		return errInvalid("phases", "breakdown must contain at least one phase")
	}
	for i, phase := range b.Phases {
		if phase.Name == "" {
			return errInvalid("phases", fmt.Sprintf("phase %d has no name", i+1))
		}
		if len(phase.Tasks) == 0 {
			return errInvalid("phases", fmt.Sprintf("phase %q has no tasks", phase.Name))
		}
		for j, task := range phase.Tasks {
			if task.Title == "" {
				return errInvalid("phases", fmt.Sprintf("task %d in phase %q has no title", j+1, phase.Name))
			}
		}
	}
	return nil
}
