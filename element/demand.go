package element

import "fmt"

// Demand 表示一次出行需求
type Demand struct {
	Index       int   // 需求序号，从1开始
	RequestTime int   // 请求时刻（秒）
	Start       *Node // 上车点
	End         *Node // 下车点
}

func (d Demand) String() string {
	return fmt.Sprintf("demand %d: from '%s' to '%s' at time %d", d.Index, d.Start.id, d.End.id, d.RequestTime)
}
