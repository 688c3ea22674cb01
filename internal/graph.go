package internal

import (
	"sort"
	"strings"
)

// TableDependency describes the tables a table must wait on before its references can be rewritten.
type TableDependency struct {
	Table     string
	DependsOn []string
	Level     int
}

// ProcessingOrder returns the tables ordered so that every referenced table comes before the tables
// referencing it. Self references are allowed. A cycle between distinct tables is a ConfigurationError.
// When tables is empty the order covers every table named by the relationships.
func ProcessingOrder(tables []string, relationships []ForeignKeyRelationship) ([]TableDependency, error) {
	nodes := make(map[string]bool)
	for _, t := range tables {
		nodes[t] = true
	}
	deps := make(map[string]map[string]bool)
	for _, r := range relationships {
		nodes[r.SourceTable] = true
		nodes[r.TargetTable] = true
		if r.IsSelfReference() {
			continue
		}
		if deps[r.SourceTable] == nil {
			deps[r.SourceTable] = make(map[string]bool)
		}
		deps[r.SourceTable][r.TargetTable] = true
	}

	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string)
	for name := range nodes {
		indegree[name] = len(deps[name])
		for target := range deps[name] {
			dependents[target] = append(dependents[target], name)
		}
	}

	var ready []string
	for name, n := range indegree {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	levels := make(map[string]int, len(nodes))
	var order []string
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		var next []string
		for _, dep := range dependents[name] {
			if levels[name]+1 > levels[dep] {
				levels[dep] = levels[name] + 1
			}
			indegree[dep]--
			if indegree[dep] == 0 {
				next = append(next, dep)
			}
		}
		if len(next) > 0 {
			ready = append(ready, next...)
			sort.Strings(ready)
		}
	}

	if len(order) != len(nodes) {
		var cyclic []string
		for name, n := range indegree {
			if n > 0 {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
		return nil, NewConfigurationError("relationship cycle between tables: %s", strings.Join(cyclic, ", "))
	}

	want := nodes
	if len(tables) > 0 {
		want = make(map[string]bool, len(tables))
		for _, t := range tables {
			want[t] = true
		}
	}
	res := make([]TableDependency, 0, len(order))
	for _, name := range order {
		if !want[name] {
			continue
		}
		var dependsOn []string
		for target := range deps[name] {
			dependsOn = append(dependsOn, target)
		}
		sort.Strings(dependsOn)
		res = append(res, TableDependency{Table: name, DependsOn: dependsOn, Level: levels[name]})
	}
	return res, nil
}
