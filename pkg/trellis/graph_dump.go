package trellis

import (
	"fmt"
	"sort"
	"strings"
)

// DumpGraph renders every cell currently registered with the engine as a
// human-readable report: one line per cell plus its subjects, in creation
// order. Grounded on store_debug.go's StoreToString, adapted from listing
// a constraint store's variables and domains to listing a Trellis
// graph's cells and their dependency edges.
func (e *Engine) DumpGraph() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Engine graph {\n")
	fmt.Fprintf(&b, "  cells: %d\n\n", len(e.allNodes))

	for _, n := range e.allNodes {
		fmt.Fprintf(&b, "  %s\n", n.DebugString())
		var names []string
		iterSubjectsOf(n, func(s *cellNode) { names = append(names, s.displayName()) })
		if len(names) > 0 {
			sort.Strings(names)
			fmt.Fprintf(&b, "    subjects: %s\n", strings.Join(names, ", "))
		}
	}

	fmt.Fprintf(&b, "}")
	return b.String()
}

// GraphSummary is DumpGraph's concise counterpart: one line with cell and
// edge counts, grounded on StoreSummary.
func (e *Engine) GraphSummary() string {
	edges := 0
	for _, n := range e.allNodes {
		edges += len(n.subjects)
	}
	return fmt.Sprintf("Engine: %d cells, %d dependency edges", len(e.allNodes), edges)
}
