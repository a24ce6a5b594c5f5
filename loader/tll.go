package loader

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/gmmrr/fleet-route-optim/element"
)

// tllFile SUMO导出的 tll.xml
//
//	<additionals>
//	    <tlLogic id="10726190730" type="static" programID="0" offset="0">
//	        <phase duration="42" state="GGgrrrGGgrrr"/>
//	        <phase duration="3"  state="yyyrrryyyrrr"/>
//	    </tlLogic>
//	</additionals>
type tllFile struct {
	XMLName xml.Name   `xml:"additionals"`
	Logics  []tlsLogic `xml:"tlLogic"`
}

type tlsLogic struct {
	ID     string     `xml:"id,attr"`
	Phases []tlsPhase `xml:"phase"`
}

type tlsPhase struct {
	Duration float64 `xml:"duration,attr"`
	State    string  `xml:"state,attr"`
}

// LoadTrafficLights 读取 tll.xml 并展开为逐秒的相位表
func LoadTrafficLights(filename string) (element.PhaseTable, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	table, err := ParseTrafficLights(file)
	if err != nil {
		return nil, fmt.Errorf("load traffic lights %s: %w", filename, err)
	}
	return table, nil
}

// ParseTrafficLights 解析 tll.xml，信号灯ID重复视为配置错误
func ParseTrafficLights(r io.Reader) (element.PhaseTable, error) {
	var doc tllFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", element.ErrConfiguration, err)
	}

	groups := make([]element.PhaseGroup, 0, len(doc.Logics))
	for _, logic := range doc.Logics {
		group := element.PhaseGroup{ID: logic.ID}
		for _, p := range logic.Phases {
			// 相位表按整秒展开，小数时长会让周期与声明的总时长不一致
			if p.Duration != math.Trunc(p.Duration) {
				return nil, fmt.Errorf("%w: traffic light %s has non-integral phase duration %v", element.ErrConfiguration, logic.ID, p.Duration)
			}
			group.Phases = append(group.Phases, element.Phase{Duration: int(p.Duration), State: p.State})
		}
		groups = append(groups, group)
	}
	return element.ExpandPhases(groups)
}
