package domain

// RoutedPath путь от источника до точки подключения объекта
type RoutedPath struct {
	AssetID string
	Nodes   []int64
	Length  float64
}

// ReconstructPath восстанавливает путь из карты предшественников.
// Возвращает nil, если sink недостижим или цепочка предшественников оборвана.
func ReconstructPath(parent map[int64]int64, source, sink int64) []int64 {
	if sink == source {
		return []int64{source}
	}
	if _, exists := parent[sink]; !exists {
		return nil
	}

	path := []int64{}
	current := sink

	for current != source {
		path = append([]int64{current}, path...)
		p, exists := parent[current]
		if !exists || p == -1 {
			return nil
		}
		current = p
	}
	path = append([]int64{source}, path...)

	return path
}

// CalculatePathLength вычисляет длину пути суммированием рёбер
func CalculatePathLength(n *Network, path []int64) float64 {
	if len(path) < 2 {
		return 0
	}

	var length float64
	for i := 0; i < len(path)-1; i++ {
		edge, ok := n.Edge(path[i], path[i+1])
		if ok {
			length += edge.Length
		}
	}
	return length
}

// CreateRoutedPath создаёт путь объекта с вычисленной длиной
func CreateRoutedPath(n *Network, assetID string, nodes []int64) *RoutedPath {
	return &RoutedPath{
		AssetID: assetID,
		Nodes:   nodes,
		Length:  CalculatePathLength(n, nodes),
	}
}
