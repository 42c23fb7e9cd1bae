package services

import (
	"container/list"
	"sort"

	"github.com/Pinzun/simula-ameba/internal/models"
)

const topBasins = 5

// AnalyzeTopology summarizes the connectivity of the routing graph: weakly
// connected components (basins), catalog entries with no arc, and one example
// of a directed cycle over all arcs when any exists.
func AnalyzeTopology(graph *models.HydroGraph, res *models.ReservoirCatalog, gen *models.GeneratorsCatalog, sample int) models.TopologySummary {
	if sample <= 0 {
		sample = models.DefaultSampleSize
	}

	arcs := graph.AllArcs()
	out := make(map[string][]string)
	undirected := make(map[string][]string)
	for _, a := range arcs {
		if a.Origin == "" || a.Destination == "" {
			continue
		}
		out[a.Origin] = append(out[a.Origin], a.Destination)
		undirected[a.Origin] = append(undirected[a.Origin], a.Destination)
		undirected[a.Destination] = append(undirected[a.Destination], a.Origin)
	}

	nodes := make([]string, 0, len(undirected))
	for n := range undirected {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		sort.Strings(out[n])
	}

	sizes := basinSizes(nodes, undirected)

	summary := models.TopologySummary{
		Nodes:         len(nodes),
		Arcs:          len(arcs),
		Basins:        len(sizes),
		LargestBasins: sizes,
	}
	if len(summary.LargestBasins) > topBasins {
		summary.LargestBasins = summary.LargestBasins[:topBasins]
	}

	var isolated []string
	for _, names := range [][]string{res.Names, gen.Groups} {
		for _, n := range names {
			if _, ok := undirected[n]; !ok {
				isolated = append(isolated, n)
			}
		}
	}
	sort.Strings(isolated)
	if len(isolated) > sample {
		isolated = isolated[:sample]
	}
	summary.Isolated = isolated

	if cycle := findCycle(nodes, out); cycle != nil {
		summary.HasCycle = true
		summary.CycleExample = cycle
	}

	return summary
}

// basinSizes returns component sizes in descending order using BFS over the
// undirected adjacency.
func basinSizes(nodes []string, adj map[string][]string) []int {
	visited := make(map[string]bool, len(nodes))
	sizes := make([]int, 0)

	for _, start := range nodes {
		if visited[start] {
			continue
		}
		size := 0
		queue := list.New()
		queue.PushBack(start)
		visited[start] = true

		for queue.Len() > 0 {
			n, ok := queue.Remove(queue.Front()).(string)
			if !ok {
				continue
			}
			size++
			for _, m := range adj[n] {
				if !visited[m] {
					visited[m] = true
					queue.PushBack(m)
				}
			}
		}
		sizes = append(sizes, size)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}

// findCycle runs a three-color DFS and returns the first directed cycle found
// as a closed path (first node repeated at the end), or nil.
func findCycle(nodes []string, out map[string][]string) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	parent := make(map[string]string, len(nodes))

	var cycle []string
	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		for _, m := range out[n] {
			switch color[m] {
			case white:
				parent[m] = n
				if visit(m) {
					return true
				}
			case gray:
				cycle = extractCycle(m, n, parent)
				return true
			}
		}
		color[n] = black
		return false
	}

	for _, n := range nodes {
		if color[n] == white && visit(n) {
			return cycle
		}
	}
	return nil
}

// extractCycle walks parent pointers from end back to start, given the back
// edge end -> start.
func extractCycle(start, end string, parent map[string]string) []string {
	path := []string{end}
	for cur := end; cur != start; {
		p, ok := parent[cur]
		if !ok {
			break
		}
		path = append(path, p)
		cur = p
	}
	// reverse into forward order
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return append(path, start)
}
