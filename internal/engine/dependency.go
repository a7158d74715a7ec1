package engine

import "slices"

// IsUnblocked reports whether every prerequisite of goal id is complete.
// A prerequisite that cannot be found counts as incomplete, and so does a
// goal that cannot be found: missing data never unblocks.
func IsUnblocked(id int64, c Collection) bool {
	g, ok := c.byID[id]
	if !ok {
		return false
	}
	for _, dep := range g.DependsOn {
		d, ok := c.byID[dep]
		if !ok || !d.IsComplete {
			return false
		}
	}
	return true
}

// BlockedBy lists the prerequisites of id that are incomplete or missing,
// in dependsOn order.
func BlockedBy(id int64, c Collection) []int64 {
	g, ok := c.byID[id]
	if !ok {
		return nil
	}
	var out []int64
	for _, dep := range g.DependsOn {
		if d, ok := c.byID[dep]; ok && d.IsComplete {
			continue
		}
		if !slices.Contains(out, dep) {
			out = append(out, dep)
		}
	}
	return out
}

// DependencyCycle returns a path id -> ... -> id through dependsOn edges,
// or nil when id is not on a cycle. Cycles are reported, not rejected: a
// goal on one stays blocked until some member completes.
func DependencyCycle(id int64, c Collection) []int64 {
	if !c.Has(id) {
		return nil
	}
	visited := make(map[int64]bool)
	path := []int64{id}

	var dfs func(cur int64) bool
	dfs = func(cur int64) bool {
		g, ok := c.byID[cur]
		if !ok {
			return false
		}
		for _, dep := range g.DependsOn {
			if dep == id {
				path = append(path, dep)
				return true
			}
			if visited[dep] {
				continue
			}
			visited[dep] = true
			path = append(path, dep)
			if dfs(dep) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}

	if dfs(id) {
		return path
	}
	return nil
}
