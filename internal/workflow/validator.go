package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/internal/schema"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult contains the result of workflow validation.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Validate checks that a stored workflow can run. Structural rules come
// first and in a fixed order, so the first error is stable for callers
// that only show one.
func Validate(wf *types.Workflow) ValidationResult {
	result := ValidationResult{Valid: true}

	if wf.ComponentByType(types.NodeTypeUserQuery) == nil {
		result.addError("components", "Workflow must contain a User Query component")
	}
	if wf.ComponentByType(types.NodeTypeLLMEngine) == nil {
		result.addError("components", "Workflow must contain an LLM Engine component")
	}
	if wf.ComponentByType(types.NodeTypeOutput) == nil {
		result.addError("components", "Workflow must contain an Output component")
	}

	for i, conn := range wf.Connections {
		if wf.ComponentByID(conn.SourceComponentID) == nil {
			result.addError(fmt.Sprintf("connections[%d].source_component_id", i),
				fmt.Sprintf("Connection references invalid source component: %s", conn.SourceComponentID))
		}
		if wf.ComponentByID(conn.TargetComponentID) == nil {
			result.addError(fmt.Sprintf("connections[%d].target_component_id", i),
				fmt.Sprintf("Connection references invalid target component: %s", conn.TargetComponentID))
		}
	}

	if q := wf.ComponentByType(types.NodeTypeUserQuery); q != nil && len(GetChildComponents(wf, q.ID)) == 0 {
		result.addError("connections", "User Query component must have outgoing connections")
	}
	if o := wf.ComponentByType(types.NodeTypeOutput); o != nil && len(GetParentComponents(wf, o.ID)) == 0 {
		result.addError("connections", "Output component must have incoming connections")
	}

	for i, c := range wf.Components {
		if _, err := schema.Decode(c.ComponentType, c.Config); err != nil {
			msg := errdefs.Message(err)
			if msg == "" {
				msg = err.Error()
			}
			result.addError(fmt.Sprintf("components[%d].config", i),
				fmt.Sprintf("Component %s has an invalid configuration: %s", c.NodeID, msg))
		}
	}

	if len(wf.Components) > 0 {
		if _, err := TopologicalSort(wf); err != nil {
			result.addError("connections", "Workflow contains a cycle")
		}
	}

	return result
}

// GetChildComponents returns the components fed by component id.
func GetChildComponents(wf *types.Workflow, id types.ComponentID) []*types.Component {
	var children []*types.Component
	for _, conn := range wf.Connections {
		if conn.SourceComponentID == id {
			if c := wf.ComponentByID(conn.TargetComponentID); c != nil {
				children = append(children, c)
			}
		}
	}
	return children
}

// GetParentComponents returns the components feeding component id.
func GetParentComponents(wf *types.Workflow, id types.ComponentID) []*types.Component {
	var parents []*types.Component
	for _, conn := range wf.Connections {
		if conn.TargetComponentID == id {
			if c := wf.ComponentByID(conn.SourceComponentID); c != nil {
				parents = append(parents, c)
			}
		}
	}
	return parents
}

// TopologicalSort returns component ids in execution order. Connections to
// unknown components are ignored.
func TopologicalSort(wf *types.Workflow) ([]types.ComponentID, error) {
	inDegree := make(map[types.ComponentID]int, len(wf.Components))
	adj := make(map[types.ComponentID][]types.ComponentID, len(wf.Components))
	for _, c := range wf.Components {
		inDegree[c.ID] = 0
	}
	for _, conn := range wf.Connections {
		_, okSource := inDegree[conn.SourceComponentID]
		_, okTarget := inDegree[conn.TargetComponentID]
		if !okSource || !okTarget {
			continue
		}
		adj[conn.SourceComponentID] = append(adj[conn.SourceComponentID], conn.TargetComponentID)
		inDegree[conn.TargetComponentID]++
	}

	// Seed in component order so the result is deterministic.
	var queue []types.ComponentID
	for _, c := range wf.Components {
		if inDegree[c.ID] == 0 {
			queue = append(queue, c.ID)
		}
	}

	var result []types.ComponentID
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, id)

		for _, child := range adj[id] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(result) != len(wf.Components) {
		return nil, errors.New("workflow contains a cycle")
	}
	return result, nil
}

// Result converts r to the wire form. Error carries the first message.
func (r ValidationResult) Result() types.ValidationResult {
	out := types.ValidationResult{Valid: r.Valid}
	for _, e := range r.Errors {
		out.Errors = append(out.Errors, e.Message)
	}
	if len(out.Errors) > 0 {
		out.Error = out.Errors[0]
	}
	return out
}

// addError adds an error to the validation result.
func (r *ValidationResult) addError(field, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// FormatErrors formats validation errors as a string.
func (r ValidationResult) FormatErrors() string {
	if r.Valid {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Validation errors:\n")
	for _, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}
