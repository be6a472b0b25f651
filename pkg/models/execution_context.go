package models

import "maps"

// ExecutionContext is the accumulating key-value structure handed to
// actions. Data carries the trigger payload under "trigger" and each
// completed step's output under "step_<n>".
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	Data        map[string]any `json:"data"`
}

// WithData returns a copy of the context whose data is extended with extra
// keys. The receiver's map is not mutated; loop iterations use this for
// their scoped {index, item, total} extension.
func (ec ExecutionContext) WithData(extra map[string]any) ExecutionContext {
	data := make(map[string]any, len(ec.Data)+len(extra))
	maps.Copy(data, ec.Data)
	maps.Copy(data, extra)

	ec.Data = data

	return ec
}
