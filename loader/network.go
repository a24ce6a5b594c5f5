package loader

import (
	"fmt"
	"os"

	"github.com/gmmrr/fleet-route-optim/element"
	"gopkg.in/yaml.v3"
)

// nodeSpec 网络文件中的节点
type nodeSpec struct {
	ID           string  `yaml:"id"`
	X            float64 `yaml:"x"`
	Y            float64 `yaml:"y"`
	TrafficLight string  `yaml:"trafficLight"`
}

// edgeSpec 网络文件中的路段
type edgeSpec struct {
	ID     string  `yaml:"id"`
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Length float64 `yaml:"length"`
	Speed  float64 `yaml:"speed"`
}

// connectionSpec 信号灯路口 进入路段 -> 驶出路段 的连接序号
type connectionSpec struct {
	TrafficLight string `yaml:"tl"`
	From         string `yaml:"from"`
	To           string `yaml:"to"`
	LinkIndex    int    `yaml:"linkIndex"`
}

// networkFile 网络文件结构
type networkFile struct {
	Nodes       []nodeSpec       `yaml:"nodes"`
	Edges       []edgeSpec       `yaml:"edges"`
	Connections []connectionSpec `yaml:"connections"`
}

// LoadNetwork 从YAML文件读取路网
func LoadNetwork(filename string) (*element.Network, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	net, err := ParseNetwork(data)
	if err != nil {
		return nil, fmt.Errorf("load network %s: %w", filename, err)
	}
	return net, nil
}

// ParseNetwork 解析YAML格式的路网描述，返回已完成方向标注的路网
func ParseNetwork(data []byte) (*element.Network, error) {
	var spec networkFile
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", element.ErrConfiguration, err)
	}

	net := element.NewNetwork()
	for _, n := range spec.Nodes {
		if _, err := net.AddNode(n.ID, n.X, n.Y, n.TrafficLight); err != nil {
			return nil, err
		}
	}
	for _, e := range spec.Edges {
		if _, err := net.AddEdge(e.ID, e.From, e.To, e.Length, e.Speed); err != nil {
			return nil, err
		}
	}
	for _, c := range spec.Connections {
		if err := net.AddConnection(c.TrafficLight, c.From, c.To, c.LinkIndex); err != nil {
			return nil, err
		}
	}

	net.Finalize()
	return net, nil
}
