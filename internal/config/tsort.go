package config

// topologicalSort orders items so that every dependency of an item
// appears before it, using depth-first search with three-color marking
// to detect cycles. Adapted from the teacher's schema/tsort.go (there,
// ordering DDL statements by foreign-key dependency; here, ordering
// "extends" config files so a base file merges before the file that
// extends it) — same shape, different domain, so the file is kept as a
// small local helper rather than a standalone package.
func topologicalSort[T any](items []T, dependencies map[string][]string, getID func(T) string) []T {
	var sorted []T
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	itemMap := make(map[string]T)

	for _, item := range items {
		itemMap[getID(item)] = item
	}

	var visit func(string) bool
	visit = func(id string) bool {
		if visiting[id] {
			return false
		}
		if visited[id] {
			return true
		}
		visiting[id] = true
		for _, dep := range dependencies[id] {
			if _, exists := itemMap[dep]; exists {
				if !visit(dep) {
					return false
				}
			}
		}
		visiting[id] = false
		visited[id] = true
		if item, exists := itemMap[id]; exists {
			sorted = append(sorted, item)
		}
		return true
	}

	for _, item := range items {
		id := getID(item)
		if !visited[id] {
			if !visit(id) {
				return []T{}
			}
		}
	}
	return sorted
}
