package element

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"golang.org/x/exp/rand"
)

func TestExpandPhases(t *testing.T) {
	groups := []PhaseGroup{{
		ID: "tl1",
		Phases: []Phase{
			{Duration: 42, State: "GGgrrr"},
			{Duration: 3, State: "yyyrrr"},
			{Duration: 42, State: "rrrGGg"},
			{Duration: 3, State: "rrryyy"},
		},
	}}

	table, err := ExpandPhases(groups)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(table["tl1"]); got != 6 {
		t.Fatalf("links = %d, want 6", got)
	}
	if got := table.CycleLength("tl1"); got != 90 {
		t.Errorf("cycle = %d, want 90", got)
	}

	seq, err := table.Signal("tl1", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Repeat("G", 42) + strings.Repeat("y", 3) + strings.Repeat("r", 45)
	if string(seq) != want {
		t.Errorf("link 0 = %s, want %s", seq, want)
	}
	for link, s := range table["tl1"] {
		if len(s) != 90 {
			t.Errorf("link %d length = %d, want 90", link, len(s))
		}
	}

	if _, err := table.Signal("tl1", 6); !errors.Is(err, ErrConfiguration) {
		t.Errorf("missing link err = %v, want ErrConfiguration", err)
	}
	if _, err := table.Signal("tl2", 0); !errors.Is(err, ErrConfiguration) {
		t.Errorf("missing light err = %v, want ErrConfiguration", err)
	}
}

func TestExpandPhasesErrors(t *testing.T) {
	tests := []struct {
		name   string
		groups []PhaseGroup
	}{
		{"duplicate id", []PhaseGroup{
			{ID: "tl1", Phases: []Phase{{Duration: 1, State: "G"}}},
			{ID: "tl1", Phases: []Phase{{Duration: 1, State: "r"}}},
		}},
		{"no phase", []PhaseGroup{{ID: "tl1"}}},
		{"zero duration", []PhaseGroup{{ID: "tl1", Phases: []Phase{{Duration: 0, State: "G"}}}}},
		{"mixed widths", []PhaseGroup{{ID: "tl1", Phases: []Phase{{Duration: 1, State: "G"}, {Duration: 1, State: "rr"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExpandPhases(tt.groups); !errors.Is(err, ErrConfiguration) {
				t.Errorf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}

// signalLine A -> B -> C，B 受信号灯 tl1 控制
// AB 长 10 米、限速 1 米/秒，到达 B 时为第 10 秒
func signalLine(t *testing.T, state string, durations ...int) (*Environment, []*Edge) {
	t.Helper()
	net := NewNetwork()
	net.AddNode("A", 0, 0, "")
	net.AddNode("B", 10, 0, "tl1")
	net.AddNode("C", 20, 0, "")
	if _, err := net.AddEdge("AB", "A", "B", 10, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := net.AddEdge("BC", "B", "C", 10, 2); err != nil {
		t.Fatal(err)
	}
	if err := net.AddConnection("tl1", "AB", "BC", 0); err != nil {
		t.Fatal(err)
	}

	var phases []Phase
	for i, d := range durations {
		phases = append(phases, Phase{Duration: d, State: string(state[i])})
	}
	tls, err := ExpandPhases([]PhaseGroup{{ID: "tl1", Phases: phases}})
	if err != nil {
		t.Fatal(err)
	}
	env, err := NewEnvironment(net, tls, nil, EvalTime)
	if err != nil {
		t.Fatal(err)
	}
	edges, err := net.ResolveEdges("AB", "BC")
	if err != nil {
		t.Fatal(err)
	}
	return env, edges
}

func TestTrafficLightOffset(t *testing.T) {
	tests := []struct {
		name      string
		state     string
		durations []int
		want      float64
	}{
		// 第10秒处于 [5, 15) 的红灯，等到下个周期开始
		{"red on arrival", "Gr", []int{5, 10}, 5},
		{"green on arrival", "rG", []int{5, 10}, 0},
		// 周期 8 秒，10 mod 8 = 2，红灯持续到第 4 秒
		{"wraps around cycle", "rG", []int{4, 4}, 2},
		{"yellow passes", "ry", []int{5, 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, edges := signalLine(t, tt.state, tt.durations...)
			offset, trace, err := env.TrafficLightOffset(edges)
			if err != nil {
				t.Fatal(err)
			}
			if offset != tt.want {
				t.Errorf("offset = %v, want %v", offset, tt.want)
			}
			if len(trace.SignalNodes) != 1 || trace.SignalNodes[0] != "B" {
				t.Errorf("signal nodes = %v, want [B]", trace.SignalNodes)
			}

			travel, err := env.TravelTime(edges)
			if err != nil {
				t.Fatal(err)
			}
			if want := 15 + tt.want; travel != want {
				t.Errorf("travel time = %v, want %v", travel, want)
			}
		})
	}
}

func TestTrafficLightOffsetEdgeCases(t *testing.T) {
	env, edges := signalLine(t, "Gr", 5, 10)
	offset, _, err := env.TrafficLightOffset(edges[:1])
	if err != nil || offset != 0 {
		t.Errorf("single edge offset = %v, %v; want 0", offset, err)
	}

	allRed, edges := signalLine(t, "r", 10)
	if _, _, err := allRed.TrafficLightOffset(edges); !errors.Is(err, ErrConfiguration) {
		t.Errorf("all red err = %v, want ErrConfiguration", err)
	}

	// 缺少连接
	net := NewNetwork()
	net.AddNode("A", 0, 0, "")
	net.AddNode("B", 1, 0, "tl1")
	net.AddNode("C", 2, 0, "")
	net.AddEdge("AB", "A", "B", 1, 1)
	net.AddEdge("BC", "B", "C", 1, 1)
	tls, _ := ExpandPhases([]PhaseGroup{{ID: "tl1", Phases: []Phase{{Duration: 1, State: "G"}}}})
	noConn, err := NewEnvironment(net, tls, nil, EvalTime)
	if err != nil {
		t.Fatal(err)
	}
	edges, _ = net.ResolveEdges("AB", "BC")
	if _, _, err := noConn.TrafficLightOffset(edges); !errors.Is(err, ErrConfiguration) {
		t.Errorf("missing connection err = %v, want ErrConfiguration", err)
	}
}

// lineNetwork n 个节点的单向直线路网，共 n-1 条路段
func lineNetwork(t *testing.T, n int, speed float64) *Network {
	t.Helper()
	net := NewNetwork()
	for i := 0; i < n; i++ {
		if _, err := net.AddNode(fmt.Sprintf("v%d", i), float64(i)*100, 0, ""); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i+1 < n; i++ {
		if _, err := net.AddEdge(fmt.Sprintf("e%d", i), fmt.Sprintf("v%d", i), fmt.Sprintf("v%d", i+1), 100, speed); err != nil {
			t.Fatal(err)
		}
	}
	net.Finalize()
	return net
}

func TestCosts(t *testing.T) {
	net := lineNetwork(t, 4, 10)
	congestion, err := NewCongestionSet(net, []Congestion{{EdgeID: "e1", Duration: 60}, {EdgeID: "e1", Duration: 90}})
	if err != nil {
		t.Fatal(err)
	}
	env, err := NewEnvironment(net, nil, congestion, EvalDistance)
	if err != nil {
		t.Fatal(err)
	}

	d, err := env.DistanceOf("e0", "e1", "e2")
	if err != nil || d != 300 {
		t.Errorf("distance = %v, %v; want 300", d, err)
	}

	// 拥堵路段按首次出现的时长计
	tm, err := env.TimeOf("e0", "e1", "e2")
	if err != nil || tm != 90 {
		t.Errorf("time = %v, %v; want 90", tm, err)
	}
	if tm < d/10 {
		t.Errorf("time %v below distance/max speed %v", tm, d/10)
	}

	cost, err := env.Cost(net.Edges())
	if err != nil || cost != 300 {
		t.Errorf("distance cost = %v, %v; want 300", cost, err)
	}
	timeEnv, _ := env.WithEvaluation(EvalTime)
	if cost, _ := timeEnv.Cost(net.Edges()); cost != 90 {
		t.Errorf("time cost = %v, want 90", cost)
	}

	if _, err := env.TimeOf("e0", "nope"); !errors.Is(err, ErrUnknownEdge) {
		t.Errorf("err = %v, want ErrUnknownEdge", err)
	}
	if _, err := NewCongestionSet(net, []Congestion{{EdgeID: "nope", Duration: 60}}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
	if _, err := ParseEvaluation("destination"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
	if _, _, err := env.SetStartEnd("v0", "v9"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestCongestionPerOccurrence(t *testing.T) {
	// A <-> B 往返两次，BA 拥堵 60 秒
	net := NewNetwork()
	net.AddNode("A", 0, 0, "")
	net.AddNode("B", 100, 0, "")
	if _, err := net.AddEdge("AB", "A", "B", 100, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := net.AddEdge("BA", "B", "A", 100, 10); err != nil {
		t.Fatal(err)
	}
	congestion, err := NewCongestionSet(net, []Congestion{{EdgeID: "BA", Duration: 60}})
	if err != nil {
		t.Fatal(err)
	}
	env, err := NewEnvironment(net, nil, congestion, EvalTime)
	if err != nil {
		t.Fatal(err)
	}

	tm, err := env.TimeOf("AB", "BA", "AB", "BA")
	if err != nil || tm != 4*10+2*60 {
		t.Errorf("time = %v, %v; want 160", tm, err)
	}
	edges, _ := net.ResolveEdges("AB", "BA", "AB", "BA")
	if cost, err := env.Cost(edges); err != nil || cost != 160 {
		t.Errorf("cost = %v, %v; want 160", cost, err)
	}
}

func TestNewEnvironmentEmptyNetwork(t *testing.T) {
	if _, err := NewEnvironment(NewNetwork(), nil, nil, EvalTime); !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestSampleCongestion(t *testing.T) {
	net := lineNetwork(t, 21, 10)
	rng := rand.New(rand.NewSource(42))

	tests := []struct {
		level string
		want  int
	}{
		{"low", 1},
		{"medium", 2},
		{"high", 4},
	}
	for _, tt := range tests {
		set, err := SampleCongestion(net, tt.level, rng)
		if err != nil {
			t.Fatal(err)
		}
		if set.Len() != tt.want {
			t.Errorf("%s: %d congested edges, want %d", tt.level, set.Len(), tt.want)
		}
		seen := make(map[string]bool)
		for _, c := range set.Items() {
			if seen[c.EdgeID] {
				t.Errorf("%s: edge %s sampled twice", tt.level, c.EdgeID)
			}
			seen[c.EdgeID] = true
			if c.Duration < MinCongestionDuration || c.Duration > MaxCongestionDuration {
				t.Errorf("%s: duration %d out of range", tt.level, c.Duration)
			}
		}
	}

	if _, err := SampleCongestion(net, "extreme", rng); !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestTimeLowerBound(t *testing.T) {
	net := lineNetwork(t, 6, 13.89)
	rng := rand.New(rand.NewSource(3))
	congestion, err := SampleCongestion(net, "high", rng)
	if err != nil {
		t.Fatal(err)
	}
	env, err := NewEnvironment(net, nil, congestion, EvalTime)
	if err != nil {
		t.Fatal(err)
	}
	edges := net.Edges()
	for i := 1; i <= len(edges); i++ {
		if tm := env.Time(edges[:i]); tm+1e-9 < env.Distance(edges[:i])/13.89 {
			t.Errorf("time(%d edges) = %v below distance bound", i, tm)
		}
		offset, _, err := env.TrafficLightOffset(edges[:i])
		if err != nil || offset < 0 || math.IsNaN(offset) {
			t.Errorf("offset(%d edges) = %v, %v", i, offset, err)
		}
	}
}

func TestVehicleTimeline(t *testing.T) {
	net := lineNetwork(t, 2, 1)
	a, _ := net.Node("v0")
	b, _ := net.Node("v1")

	v := NewVehicle(0, a)
	if !v.IsIdle(0) {
		t.Error("new vehicle should be idle")
	}
	v.PadTo(5)
	v.Append(Commuting, 2)
	v.Append(Serving, 3)
	if v.BusyUntil() != 10 || v.IsIdle(9) || !v.IsIdle(10) {
		t.Errorf("timeline = %v", v.Timeline())
	}
	if got := v.Utilization(); got != 0.5 {
		t.Errorf("utilization = %v, want 0.5", got)
	}
	v.PadTo(3)
	if v.BusyUntil() != 10 {
		t.Error("PadTo must not shrink the timeline")
	}
	if err := v.SetLocation(b); err != nil || v.Location() != b {
		t.Errorf("location = %v, %v", v.Location(), err)
	}
}
