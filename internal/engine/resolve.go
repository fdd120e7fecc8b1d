// Package engine derives the visual state of an animation plan at a step.
package engine

import "github.com/code-animator/backend/internal/models"

// InitialStep is the step index before any step has been applied.
const InitialStep = -1

// ClampStep limits index to the valid range [-1, total-1] for a plan with total steps.
func ClampStep(index, total int) int {
	if index > total-1 {
		index = total - 1
	}
	if index < InitialStep {
		index = InitialStep
	}
	return index
}

// Resolve returns the element tree after applying steps 0..stepIndex of plan.
// The plan is never mutated. Out-of-range indexes are clamped.
func Resolve(plan *models.AnimationPlan, stepIndex int) []models.Element {
	elements := cloneElements(plan.Elements)
	index := indexElements(elements)

	last := ClampStep(stepIndex, len(plan.Steps))
	for i := 0; i <= last; i++ {
		applyStep(index, plan.Steps[i])
	}
	return elements
}

// Apply mutates elements in place with the actions of one step.
func Apply(elements []models.Element, step models.Step) {
	applyStep(indexElements(elements), step)
}

func applyStep(index map[string]*models.Element, step models.Step) {
	for _, action := range step.Actions {
		el, ok := index[action.ElementID]
		if !ok {
			continue
		}
		applyAction(el, action)
	}
}

func applyAction(el *models.Element, action models.Action) {
	switch action.Type {
	case models.ActionUpdate:
		el.Style.Merge(action.Payload)
	case models.ActionFadeIn:
		el.Style.SetOpacity(1)
	case models.ActionFadeOut:
		el.Style.SetOpacity(0)
	}
}

func cloneElements(elements []models.Element) []models.Element {
	if elements == nil {
		return []models.Element{}
	}
	out := make([]models.Element, len(elements))
	for i, el := range elements {
		out[i] = el.Clone()
	}
	return out
}

// indexElements maps ids to elements at any depth. The first occurrence of an id wins.
func indexElements(elements []models.Element) map[string]*models.Element {
	index := make(map[string]*models.Element)
	var walk func(els []models.Element)
	walk = func(els []models.Element) {
		for i := range els {
			el := &els[i]
			if _, exists := index[el.ID]; !exists {
				index[el.ID] = el
			}
			walk(el.Children)
		}
	}
	walk(elements)
	return index
}

// DuplicateIDs reports element ids declared more than once, in first-seen order.
func DuplicateIDs(plan *models.AnimationPlan) []string {
	seen := make(map[string]int)
	var dups []string
	var walk func(els []models.Element)
	walk = func(els []models.Element) {
		for _, el := range els {
			seen[el.ID]++
			if seen[el.ID] == 2 {
				dups = append(dups, el.ID)
			}
			walk(el.Children)
		}
	}
	walk(plan.Elements)
	return dups
}

// DanglingReferences lists action targets that match no element. They are
// ignored during resolution but worth surfacing when a plan is imported.
func DanglingReferences(plan *models.AnimationPlan) []string {
	index := indexElements(cloneElements(plan.Elements))
	seen := make(map[string]struct{})
	var missing []string
	for _, step := range plan.Steps {
		for _, action := range step.Actions {
			if _, ok := index[action.ElementID]; ok {
				continue
			}
			if _, dup := seen[action.ElementID]; dup {
				continue
			}
			seen[action.ElementID] = struct{}{}
			missing = append(missing, action.ElementID)
		}
	}
	return missing
}

// Find returns the element with id at any depth of elements.
func Find(elements []models.Element, id string) (*models.Element, bool) {
	el, ok := indexElements(elements)[id]
	return el, ok
}
