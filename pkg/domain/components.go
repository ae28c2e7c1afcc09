package domain

import "sort"

// Component связная компонента графа. Узлы отсортированы по возрастанию.
type Component struct {
	Nodes []int64
}

// Size возвращает количество узлов в компоненте
func (c *Component) Size() int {
	return len(c.Nodes)
}

// ConnectedComponents находит связные компоненты графа обходом в ширину.
// Компоненты отсортированы по убыванию размера; при равенстве — по
// наименьшему идентификатору узла.
func ConnectedComponents(n *Network) []*Component {
	visited := make(map[int64]bool, n.NodeCount())
	var components []*Component

	for _, id := range n.SortedNodeIDs() {
		if visited[id] {
			continue
		}

		comp := &Component{}
		queue := []int64{id}
		visited[id] = true

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp.Nodes = append(comp.Nodes, cur)

			for _, next := range n.Neighbors(cur) {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}

		sort.Slice(comp.Nodes, func(i, j int) bool { return comp.Nodes[i] < comp.Nodes[j] })
		components = append(components, comp)
	}

	// Обход идёт по возрастанию идентификаторов, поэтому при равных размерах
	// компонента с меньшим узлом уже стоит раньше: стабильная сортировка
	// сохраняет этот порядок.
	sort.SliceStable(components, func(i, j int) bool { return components[i].Size() > components[j].Size() })

	return components
}

// Reachable возвращает множество узлов, достижимых из start
func Reachable(n *Network, start int64) map[int64]bool {
	visited := make(map[int64]bool)
	if _, ok := n.Node(start); !ok {
		return visited
	}

	queue := []int64{start}
	visited[start] = true

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range n.Neighbors(cur) {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	return visited
}
