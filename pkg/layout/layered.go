// Package layout computes canvas positions for diagram nodes.
package layout

import "github.com/aretw0/lattice/pkg/domain"

// Options controls the spacing of a layered layout.
type Options struct {
	Origin   domain.Position
	HSpacing float64 // distance between layers (columns)
	VSpacing float64 // distance between nodes of the same layer
}

// DefaultOptions matches the spacing of the editor palette.
func DefaultOptions() Options {
	return Options{
		Origin:   domain.Position{X: 100, Y: 100},
		HSpacing: 180,
		VSpacing: 120,
	}
}

// Layered arranges nodes left to right by their shortest distance from a start node.
// Roots are the StartEvents, or the nodes without incoming edges when there are none.
// Nodes unreachable from any root open new layers after the deepest one.
// The result is deterministic for a given node order and tolerates cycles and dangling edges.
func Layered(d *domain.Diagram, opts Options) {
	if d == nil || len(d.Nodes) == 0 {
		return
	}

	index := make(map[string]int, len(d.Nodes))
	for i, n := range d.Nodes {
		index[n.ID] = i
	}

	outgoing := make(map[string][]string, len(d.Nodes))
	incoming := make(map[string]int, len(d.Nodes))
	for _, e := range d.Edges {
		_, src := index[e.SourceID]
		_, dst := index[e.TargetID]
		if !src || !dst {
			continue
		}
		outgoing[e.SourceID] = append(outgoing[e.SourceID], e.TargetID)
		if e.SourceID != e.TargetID {
			incoming[e.TargetID]++
		}
	}

	depth := make(map[string]int, len(d.Nodes))
	maxDepth := -1

	bfs := func(roots []string, base int) {
		queue := make([]string, 0, len(roots))
		for _, r := range roots {
			if _, seen := depth[r]; seen {
				continue
			}
			depth[r] = base
			queue = append(queue, r)
		}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if depth[current] > maxDepth {
				maxDepth = depth[current]
			}
			for _, next := range outgoing[current] {
				if _, seen := depth[next]; seen {
					continue
				}
				depth[next] = depth[current] + 1
				queue = append(queue, next)
			}
		}
	}

	bfs(roots(d.Nodes, incoming), 0)
	for _, n := range d.Nodes {
		if _, seen := depth[n.ID]; !seen {
			bfs([]string{n.ID}, maxDepth+1)
		}
	}

	rows := make(map[int]int)
	for i := range d.Nodes {
		layer := depth[d.Nodes[i].ID]
		d.Nodes[i].Position = domain.Position{
			X: opts.Origin.X + float64(layer)*opts.HSpacing,
			Y: opts.Origin.Y + float64(rows[layer])*opts.VSpacing,
		}
		rows[layer]++
	}
	d.Touch()
}

func roots(nodes []domain.Node, incoming map[string]int) []string {
	var starts, sources []string
	for _, n := range nodes {
		if n.Kind == domain.KindStartEvent {
			starts = append(starts, n.ID)
		}
		if incoming[n.ID] == 0 {
			sources = append(sources, n.ID)
		}
	}
	if len(starts) > 0 {
		return starts
	}
	if len(sources) > 0 {
		return sources
	}
	return []string{nodes[0].ID}
}
