package domain

import (
	"fmt"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"heatgrid/pkg/geometry"
)

// EdgeKey уникальный ключ неориентированного ребра. From всегда меньше To.
type EdgeKey struct {
	From int64
	To   int64
}

// NewEdgeKey нормализует пару узлов в ключ ребра
func NewEdgeKey(a, b int64) EdgeKey {
	if a > b {
		a, b = b, a
	}
	return EdgeKey{From: a, To: b}
}

// String возвращает строковое представление ключа ребра
func (e EdgeKey) String() string {
	return fmt.Sprintf("%d-%d", e.From, e.To)
}

// Node узел уличного графа. Идентичность узла задаётся квантованной
// координатой: все точки с одним ключом квантования сливаются в один узел.
type Node struct {
	ID      int64
	Point   orb.Point
	Type    NodeType
	AssetID string // заполнен для узлов, представляющих объект
}

// Edge неориентированное ребро уличного графа
type Edge struct {
	From      int64 // From < To
	To        int64
	Length    float64
	SegmentID string // id исходной улицы; пусто для мостов
	Category  StreetCategory
	Kind      EdgeKind
}

// Key возвращает ключ ребра
func (e *Edge) Key() EdgeKey {
	return EdgeKey{From: e.From, To: e.To}
}

// Network уличный граф маршрутизации.
//
// Жизненный цикл: построение и привязка объектов мутируют граф в один поток,
// затем Freeze() переводит его в режим только для чтения — маршрутизация и
// синтез топологии читают его конкурентно без дополнительных блокировок.
type Network struct {
	nodes map[int64]*Node
	edges map[EdgeKey]*Edge
	adj   map[int64][]int64
	byKey map[geometry.Key]int64

	quant  geometry.Quantizer
	nextID int64
	frozen bool

	// Кэш отсортированных идентификаторов для детерминированных обходов
	sortedIDs []int64
	idsDirty  bool

	mu sync.RWMutex
}

// NewNetwork создаёт пустой граф с заданным квантованием координат
func NewNetwork(quant geometry.Quantizer) *Network {
	return &Network{
		nodes:    make(map[int64]*Node),
		edges:    make(map[EdgeKey]*Edge),
		adj:      make(map[int64][]int64),
		byKey:    make(map[geometry.Key]int64),
		quant:    quant,
		nextID:   1,
		idsDirty: true,
	}
}

// Quantizer возвращает квантователь графа
func (n *Network) Quantizer() geometry.Quantizer {
	return n.quant
}

// EnsureNode возвращает узел в точке p, создавая его при отсутствии.
// Узлы с совпадающим ключом квантования переиспользуются; created=false
// означает, что узел уже существовал.
func (n *Network) EnsureNode(p orb.Point, t NodeType, assetID string) (*Node, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.checkMutable()

	key := n.quant.Key(p)
	if id, ok := n.byKey[key]; ok {
		node := n.nodes[id]
		n.upgradeNode(node, t, assetID)
		return node, false
	}

	node := &Node{
		ID:      n.nextID,
		Point:   n.quant.Point(key),
		Type:    t,
		AssetID: assetID,
	}
	n.nextID++
	n.nodes[node.ID] = node
	n.byKey[key] = node.ID
	n.idsDirty = true

	return node, true
}

// upgradeNode повышает роль существующего узла, когда на него попадает объект.
// Узел источника никогда не понижается.
func (n *Network) upgradeNode(node *Node, t NodeType, assetID string) {
	if t == NodeTypeUnspecified {
		return
	}
	switch node.Type {
	case NodeTypeSource:
		return
	case NodeTypeStreet, NodeTypeVirtual, NodeTypeUnspecified:
		if t == NodeTypeSource || t == NodeTypeServiceConnection {
			node.Type = t
			if node.AssetID == "" {
				node.AssetID = assetID
			}
		}
	case NodeTypeServiceConnection:
		if t == NodeTypeSource {
			node.Type = t
			node.AssetID = assetID
		}
	}
}

// Node возвращает узел по идентификатору
func (n *Network) Node(id int64) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	node, ok := n.nodes[id]
	return node, ok
}

// NodeAt возвращает узел по координате, если он существует
func (n *Network) NodeAt(p orb.Point) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	id, ok := n.byKey[n.quant.Key(p)]
	if !ok {
		return nil, false
	}
	return n.nodes[id], true
}

// AddEdge добавляет неориентированное ребро между существующими узлами.
// Петли отбрасываются. При дубликате ключа остаётся более короткое ребро.
// Возвращает (ребро, true) при вставке и (существующее ребро, false) иначе.
func (n *Network) AddEdge(from, to int64, length float64, segmentID string, cat StreetCategory, kind EdgeKind) (*Edge, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.checkMutable()

	if from == to {
		return nil, false
	}

	key := NewEdgeKey(from, to)
	if existing, ok := n.edges[key]; ok {
		if length < existing.Length {
			existing.Length = length
			existing.SegmentID = segmentID
			existing.Category = cat
			existing.Kind = kind
		}
		return existing, false
	}

	edge := &Edge{
		From:      key.From,
		To:        key.To,
		Length:    length,
		SegmentID: segmentID,
		Category:  cat,
		Kind:      kind,
	}
	n.edges[key] = edge
	n.adj[key.From] = append(n.adj[key.From], key.To)
	n.adj[key.To] = append(n.adj[key.To], key.From)

	return edge, true
}

// RemoveEdge удаляет ребро между узлами. Используется при разрезании
// сегмента точкой привязки.
func (n *Network) RemoveEdge(from, to int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.checkMutable()

	key := NewEdgeKey(from, to)
	if _, ok := n.edges[key]; !ok {
		return false
	}

	delete(n.edges, key)
	n.adj[key.From] = removeID(n.adj[key.From], key.To)
	n.adj[key.To] = removeID(n.adj[key.To], key.From)

	return true
}

func removeID(list []int64, id int64) []int64 {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Edge возвращает ребро между двумя узлами
func (n *Network) Edge(from, to int64) (*Edge, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	edge, ok := n.edges[NewEdgeKey(from, to)]
	return edge, ok
}

// Neighbors возвращает соседей узла. После Freeze список отсортирован по
// возрастанию идентификаторов; вызывающий не должен его изменять.
func (n *Network) Neighbors(id int64) []int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.adj[id]
}

// NodeCount возвращает количество узлов
func (n *Network) NodeCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return len(n.nodes)
}

// EdgeCount возвращает количество рёбер
func (n *Network) EdgeCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return len(n.edges)
}

// SortedNodeIDs возвращает идентификаторы узлов по возрастанию.
// Результат кэшируется до следующей мутации графа.
func (n *Network) SortedNodeIDs() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.idsDirty {
		n.sortedIDs = n.sortedIDs[:0]
		for id := range n.nodes {
			n.sortedIDs = append(n.sortedIDs, id)
		}
		sort.Slice(n.sortedIDs, func(i, j int) bool { return n.sortedIDs[i] < n.sortedIDs[j] })
		n.idsDirty = false
	}
	return n.sortedIDs
}

// EdgeList возвращает рёбра, отсортированные по ключу. Для детерминированного
// экспорта и статистики.
func (n *Network) EdgeList() []*Edge {
	n.mu.RLock()
	defer n.mu.RUnlock()

	list := make([]*Edge, 0, len(n.edges))
	for _, e := range n.edges {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].From != list[j].From {
			return list[i].From < list[j].From
		}
		return list[i].To < list[j].To
	})
	return list
}

// Freeze переводит граф в режим только для чтения: списки смежности
// сортируются, дальнейшие мутации вызывают панику.
func (n *Network) Freeze() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.frozen {
		return
	}
	for id := range n.adj {
		sort.Slice(n.adj[id], func(i, j int) bool { return n.adj[id][i] < n.adj[id][j] })
	}
	n.frozen = true
}

// Frozen сообщает, заморожен ли граф
func (n *Network) Frozen() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.frozen
}

func (n *Network) checkMutable() {
	if n.frozen {
		panic("domain: network is frozen, construction phase is over")
	}
}

// Clone создаёт глубокую незамороженную копию графа
func (n *Network) Clone() *Network {
	n.mu.RLock()
	defer n.mu.RUnlock()

	clone := NewNetwork(n.quant)
	clone.nextID = n.nextID

	for id, node := range n.nodes {
		copied := *node
		clone.nodes[id] = &copied
	}
	for key, edge := range n.edges {
		copied := *edge
		clone.edges[key] = &copied
		clone.adj[key.From] = append(clone.adj[key.From], key.To)
		clone.adj[key.To] = append(clone.adj[key.To], key.From)
	}
	for key, id := range n.byKey {
		clone.byKey[key] = id
	}

	return clone
}

// Distance возвращает евклидово расстояние между узлами
func (n *Network) Distance(a, b int64) float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	na, ok := n.nodes[a]
	if !ok {
		return Infinity
	}
	nb, ok := n.nodes[b]
	if !ok {
		return Infinity
	}
	return planar.Distance(na.Point, nb.Point)
}

// Validate проверяет целостность графа
func (n *Network) Validate() []error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var errs []error

	for key, edge := range n.edges {
		if _, ok := n.nodes[edge.From]; !ok {
			errs = append(errs, fmt.Errorf("edge %s references non-existent node %d", key, edge.From))
		}
		if _, ok := n.nodes[edge.To]; !ok {
			errs = append(errs, fmt.Errorf("edge %s references non-existent node %d", key, edge.To))
		}
		if edge.From == edge.To {
			errs = append(errs, fmt.Errorf("self-loop detected at node %d", edge.From))
		}
		if edge.Length < 0 {
			errs = append(errs, fmt.Errorf("edge %s has negative length", key))
		}
	}

	return errs
}
