package crawler

import "github.com/propfolio/ownergraph/internal/model"

// Task is one unit of frontier work. The variant set is closed:
// a task either expands a property's registrations or a name's filings.
//
// Design decision: The frontier is an explicit, typed, round-indexed
// collection rather than recursion so the depth bound stays visible,
// testable, and stack-safe regardless of how wide a round fans out.
type Task interface {
	isTask()
}

// PropertyTask asks the next round to expand a parcel's registrations.
type PropertyTask struct {
	// BBL identifies the parcel to expand.
	BBL model.BBL
}

func (PropertyTask) isTask() {}

// NameTask asks the next round to search filings by a discovered name.
type NameTask struct {
	// Key is the normalized name, identical to the node key.
	Key string

	// Business records the classification decided when the name was
	// discovered; it selects the search field (business name vs surname).
	Business bool
}

func (NameTask) isTask() {}

// splitFrontier partitions a frontier into its property and name tasks,
// preserving order within each branch.
func splitFrontier(tasks []Task) (properties []PropertyTask, names []NameTask) {
	for _, task := range tasks {
		switch t := task.(type) {
		case PropertyTask:
			properties = append(properties, t)
		case NameTask:
			names = append(names, t)
		}
	}
	return properties, names
}
