package core

// BackendConfig declares one interchangeable text-processing backend known to
// the router. Multiple configs may claim the same task; ascending Priority
// (lower number tried first) defines the fallback order between them.
//
// The registry of BackendConfigs is supplied at construction time and is
// read-only during execution, so no locking is required on the hot path.
type BackendConfig struct {
	// Name identifies the backend and doubles as the model identifier handed
	// to the Capability on invocation.
	Name string `json:"name" yaml:"name"`

	// Tasks lists the task kinds this backend supports.
	Tasks []string `json:"tasks" yaml:"tasks"`

	// Priority orders fallback between backends supporting the same task.
	// Lower values are tried first.
	Priority int `json:"priority" yaml:"priority"`
}

// SupportsTask reports whether the backend claims support for task.
func (c BackendConfig) SupportsTask(task string) bool {
	for _, t := range c.Tasks {
		if t == task {
			return true
		}
	}
	return false
}
