package element

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Node 表示路网中的一个交叉口
type Node struct {
	index        int64     // 路网内部的连续索引
	id           string    // 节点ID
	coord        orb.Point // 平面坐标
	trafficLight string    // 所属信号灯ID，空字符串表示无信号控制
}

// ID 返回节点在路网中的索引，实现 graph.Node
func (n *Node) ID() int64 {
	return n.index
}

// Name 返回节点ID
func (n *Node) Name() string {
	return n.id
}

// Coord 返回节点坐标
func (n *Node) Coord() orb.Point {
	return n.coord
}

// TrafficLight 返回信号灯ID
func (n *Node) TrafficLight() string {
	return n.trafficLight
}

// IsSignalized 判断节点是否受信号灯控制
func (n *Node) IsSignalized() bool {
	return n.trafficLight != ""
}

func (n *Node) String() string {
	return n.id
}

// Edge 表示一条有向路段，反方向路段是另一条独立的Edge
type Edge struct {
	index  int
	id     string
	from   *Node
	to     *Node
	length float64 // 米
	speed  float64 // 米/秒
}

// From 返回起点，实现 graph.Edge
func (e *Edge) From() graph.Node {
	return e.from
}

// To 返回终点，实现 graph.Edge
func (e *Edge) To() graph.Node {
	return e.to
}

// ReversedEdge 路段有方向，不做反转
func (e *Edge) ReversedEdge() graph.Edge {
	return e
}

// Name 返回路段ID
func (e *Edge) Name() string {
	return e.id
}

// FromNode 返回起点
func (e *Edge) FromNode() *Node {
	return e.from
}

// ToNode 返回终点
func (e *Edge) ToNode() *Node {
	return e.to
}

// Length 返回路段长度
func (e *Edge) Length() float64 {
	return e.length
}

// Speed 返回路段限速
func (e *Edge) Speed() float64 {
	return e.speed
}

// RideTime 返回不考虑拥堵与信号灯的通行时间
func (e *Edge) RideTime() float64 {
	return e.length / e.speed
}

func (e *Edge) String() string {
	return e.id
}

// Direction 表示查询节点关联路段时的方向
type Direction string

const (
	Unspecified Direction = ""
	Incoming    Direction = "incoming"
	Outgoing    Direction = "outgoing"
)

// End 表示路段的端点
type End string

const (
	StartEnd End = "start"
	EndEnd   End = "end"
)

// connectionKey 进入路段与驶出路段的组合
type connectionKey struct {
	in, out int
}

// Connection 表示信号灯路口中一组进出路段对应的信号灯连接
type Connection struct {
	TrafficLight string
	LinkIndex    int
}

// Network 表示有向路网
type Network struct {
	g           *simple.DirectedGraph
	nodes       []*Node
	edges       []*Edge
	nodeIndex   map[string]*Node
	edgeIndex   map[string]*Edge
	out         [][]*Edge // 按加载顺序保存的出边
	in          [][]*Edge // 按加载顺序保存的入边
	connections map[connectionKey]Connection
	labels      []int // 每条路段的方向标签，-1表示未标注
	finalized   bool
}

// NewNetwork 创建一个空路网
func NewNetwork() *Network {
	return &Network{
		g:           simple.NewDirectedGraph(),
		nodeIndex:   make(map[string]*Node),
		edgeIndex:   make(map[string]*Edge),
		connections: make(map[connectionKey]Connection),
	}
}

// AddNode 添加节点
func (net *Network) AddNode(id string, x, y float64, trafficLight string) (*Node, error) {
	if net.finalized {
		return nil, fmt.Errorf("%w: network already finalized", ErrConfiguration)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty node id", ErrConfiguration)
	}
	if _, ok := net.nodeIndex[id]; ok {
		return nil, fmt.Errorf("%w: duplicated node %s", ErrConfiguration, id)
	}

	node := &Node{
		index:        int64(len(net.nodes)),
		id:           id,
		coord:        orb.Point{x, y},
		trafficLight: trafficLight,
	}
	net.g.AddNode(node)
	net.nodes = append(net.nodes, node)
	net.nodeIndex[id] = node
	net.out = append(net.out, nil)
	net.in = append(net.in, nil)
	return node, nil
}

// AddEdge 添加有向路段
// 同一有序节点对之间只允许一条路段，否则路径重建无法确定路段
func (net *Network) AddEdge(id, from, to string, length, speed float64) (*Edge, error) {
	if net.finalized {
		return nil, fmt.Errorf("%w: network already finalized", ErrConfiguration)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty edge id", ErrConfiguration)
	}
	if _, ok := net.edgeIndex[id]; ok {
		return nil, fmt.Errorf("%w: duplicated edge %s", ErrConfiguration, id)
	}
	fromNode, ok := net.nodeIndex[from]
	if !ok {
		return nil, fmt.Errorf("edge %s: %w %s", id, ErrUnknownNode, from)
	}
	toNode, ok := net.nodeIndex[to]
	if !ok {
		return nil, fmt.Errorf("edge %s: %w %s", id, ErrUnknownNode, to)
	}
	if fromNode == toNode {
		return nil, fmt.Errorf("%w: edge %s is a self loop on %s", ErrConfiguration, id, from)
	}
	if length <= 0 || speed <= 0 {
		return nil, fmt.Errorf("%w: edge %s must have positive length and speed", ErrConfiguration, id)
	}
	if net.g.HasEdgeFromTo(fromNode.ID(), toNode.ID()) {
		return nil, fmt.Errorf("%w: parallel edge %s between %s and %s", ErrConfiguration, id, from, to)
	}

	edge := &Edge{
		index:  len(net.edges),
		id:     id,
		from:   fromNode,
		to:     toNode,
		length: length,
		speed:  speed,
	}
	net.g.SetEdge(edge)
	net.edges = append(net.edges, edge)
	net.edgeIndex[id] = edge
	net.out[fromNode.index] = append(net.out[fromNode.index], edge)
	net.in[toNode.index] = append(net.in[toNode.index], edge)
	return edge, nil
}

// AddConnection 登记信号灯路口中 进入路段 -> 驶出路段 对应的连接序号
func (net *Network) AddConnection(trafficLight, inEdge, outEdge string, linkIndex int) error {
	in, ok := net.edgeIndex[inEdge]
	if !ok {
		return fmt.Errorf("connection of %s: %w %s", trafficLight, ErrUnknownEdge, inEdge)
	}
	out, ok := net.edgeIndex[outEdge]
	if !ok {
		return fmt.Errorf("connection of %s: %w %s", trafficLight, ErrUnknownEdge, outEdge)
	}
	if in.to != out.from {
		return fmt.Errorf("%w: edges %s and %s do not meet at a junction", ErrConfiguration, inEdge, outEdge)
	}
	if in.to.trafficLight == "" || in.to.trafficLight != trafficLight {
		return fmt.Errorf("%w: junction %s is not controlled by traffic light %s", ErrConfiguration, in.to.id, trafficLight)
	}
	if linkIndex < 0 {
		return fmt.Errorf("%w: negative link index %d", ErrConfiguration, linkIndex)
	}
	net.connections[connectionKey{in.index, out.index}] = Connection{TrafficLight: trafficLight, LinkIndex: linkIndex}
	return nil
}

// Finalize 完成路网构建并计算方向标签，此后路网不可修改
func (net *Network) Finalize() {
	if net.finalized {
		return
	}
	net.labels = labelEdges(net)
	net.finalized = true
}

// Graph 返回底层的gonum有向图
func (net *Network) Graph() graph.Directed {
	return net.g
}

// Nodes 返回所有节点（按加载顺序）
func (net *Network) Nodes() []*Node {
	return slices.Clone(net.nodes)
}

// Edges 返回所有路段（按加载顺序）
func (net *Network) Edges() []*Edge {
	return slices.Clone(net.edges)
}

// NumNodes 返回节点数量
func (net *Network) NumNodes() int {
	return len(net.nodes)
}

// NumEdges 返回路段数量
func (net *Network) NumEdges() int {
	return len(net.edges)
}

// Node 根据ID查找节点
func (net *Network) Node(id string) (*Node, error) {
	node, ok := net.nodeIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return node, nil
}

// NodeAt 根据索引返回节点
func (net *Network) NodeAt(index int64) *Node {
	return net.nodes[index]
}

// Edge 根据ID查找路段
func (net *Network) Edge(id string) (*Edge, error) {
	edge, ok := net.edgeIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEdge, id)
	}
	return edge, nil
}

// ResolveEdges 将路段ID序列转换为路段
func (net *Network) ResolveEdges(ids ...string) ([]*Edge, error) {
	edges := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		edge, err := net.Edge(id)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// EdgesOf 返回节点的关联路段
//
// 参数:
//   - id: 节点ID
//   - direction: Incoming 只返回入边, Outgoing 只返回出边, Unspecified 返回入边和出边
func (net *Network) EdgesOf(id string, direction Direction) ([]*Edge, error) {
	switch direction {
	case Incoming, Outgoing, Unspecified:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	node, err := net.Node(id)
	if err != nil {
		return nil, err
	}

	switch direction {
	case Incoming:
		return slices.Clone(net.in[node.index]), nil
	case Outgoing:
		return slices.Clone(net.out[node.index]), nil
	default:
		return append(append([]*Edge(nil), net.in[node.index]...), net.out[node.index]...), nil
	}
}

// Outgoing 返回节点的出边，不做拷贝，调用方不得修改
func (net *Network) Outgoing(node *Node) []*Edge {
	return net.out[node.index]
}

// Incoming 返回节点的入边，不做拷贝，调用方不得修改
func (net *Network) Incoming(node *Node) []*Edge {
	return net.in[node.index]
}

// EdgeNode 返回路段的起点或终点
func (net *Network) EdgeNode(id string, end End) (*Node, error) {
	edge, err := net.Edge(id)
	if err != nil {
		return nil, err
	}
	switch end {
	case StartEnd:
		return edge.from, nil
	case EndEnd:
		return edge.to, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, end)
	}
}

// EdgeBetween 返回有序节点对之间唯一的路段
func (net *Network) EdgeBetween(u, v *Node) *Edge {
	e := net.g.Edge(u.ID(), v.ID())
	if e == nil {
		return nil
	}
	return e.(*Edge)
}

// Connection 返回信号灯路口中进出路段对应的连接
func (net *Network) Connection(in, out *Edge) (Connection, bool) {
	c, ok := net.connections[connectionKey{in.index, out.index}]
	return c, ok
}

// SignalNodes 返回所有受信号灯控制的节点
func (net *Network) SignalNodes() []*Node {
	var signals []*Node
	for _, node := range net.nodes {
		if node.IsSignalized() {
			signals = append(signals, node)
		}
	}
	return signals
}

// NodeCoords 返回节点坐标，供绘图使用
func (net *Network) NodeCoords() map[string]orb.Point {
	coords := make(map[string]orb.Point, len(net.nodes))
	for _, node := range net.nodes {
		coords[node.id] = node.coord
	}
	return coords
}

// EdgeEndpoints 返回路段的起终点ID，供绘图使用
func (net *Network) EdgeEndpoints() map[string][2]string {
	endpoints := make(map[string][2]string, len(net.edges))
	for _, edge := range net.edges {
		endpoints[edge.id] = [2]string{edge.from.id, edge.to.id}
	}
	return endpoints
}

// Bound 返回路网的外包矩形
func (net *Network) Bound() orb.Bound {
	mp := make(orb.MultiPoint, 0, len(net.nodes))
	for _, node := range net.nodes {
		mp = append(mp, node.coord)
	}
	return mp.Bound()
}
