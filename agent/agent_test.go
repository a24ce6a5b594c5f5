package agent

import (
	"errors"
	"testing"

	"github.com/gmmrr/fleet-route-optim/element"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

type testNode struct {
	id   string
	x, y float64
}

type testEdge struct {
	id, from, to string
	length       float64
}

func buildEnv(t *testing.T, nodes []testNode, edges []testEdge, eval element.Evaluation) *element.Environment {
	t.Helper()
	net := element.NewNetwork()
	for _, n := range nodes {
		if _, err := net.AddNode(n.id, n.x, n.y, ""); err != nil {
			t.Fatalf("AddNode(%s): %v", n.id, err)
		}
	}
	for _, e := range edges {
		if _, err := net.AddEdge(e.id, e.from, e.to, e.length, 1); err != nil {
			t.Fatalf("AddEdge(%s): %v", e.id, err)
		}
	}
	env, err := element.NewEnvironment(net, nil, nil, eval)
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	return env
}

// diamondEnv A 到 D 有两条两跳路径，A -> E -> F 为死路
//
//	      B
//	E  A     D
//	F     C
func diamondEnv(t *testing.T) *element.Environment {
	return buildEnv(t,
		[]testNode{{"A", 0, 0}, {"B", 1, 1}, {"C", 1, -1}, {"D", 2, 0}, {"E", -1, 0}, {"F", -2, 0}},
		[]testEdge{
			{"AB", "A", "B", 1}, {"AC", "A", "C", 1}, {"AE", "A", "E", 1},
			{"BD", "B", "D", 1}, {"CD", "C", "D", 1}, {"EF", "E", "F", 1},
		},
		element.EvalDistance,
	)
}

func mustNode(t *testing.T, env *element.Environment, id string) *element.Node {
	t.Helper()
	n, err := env.Network().Node(id)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func mustEdges(t *testing.T, env *element.Environment, ids ...string) []*element.Edge {
	t.Helper()
	edges, err := env.Network().ResolveEdges(ids...)
	if err != nil {
		t.Fatal(err)
	}
	return edges
}

func TestGreedyPolicyPicksUniqueMaximum(t *testing.T) {
	q := mat.NewDense(3, element.NumActions, nil)
	q.Set(1, 2, 5)
	q.Set(1, 0, -1)

	if got := (GreedyPolicy{}).Act(1, q); got != 2 {
		t.Errorf("Act = %d, want 2", got)
	}
	// 全零行取序号最小的动作
	if got := (GreedyPolicy{}).Act(0, q); got != 0 {
		t.Errorf("Act on zero row = %d, want 0", got)
	}
}

func TestEpsilonGreedyPolicy(t *testing.T) {
	q := mat.NewDense(1, element.NumActions, nil)
	q.Set(0, 3, 1)

	greedy := NewEpsilonGreedyPolicy(0, rand.New(rand.NewSource(1)))
	for i := 0; i < 100; i++ {
		if got := greedy.Act(0, q); got != 3 {
			t.Fatalf("epsilon 0: Act = %d, want 3", got)
		}
	}

	random := NewEpsilonGreedyPolicy(1, rand.New(rand.NewSource(1)))
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		a := random.Act(0, q)
		if a < 0 || a >= element.NumActions {
			t.Fatalf("action %d out of range", a)
		}
		seen[a] = true
	}
	if len(seen) != element.NumActions {
		t.Errorf("epsilon 1 explored %d actions, want %d", len(seen), element.NumActions)
	}
}

func TestLearn(t *testing.T) {
	env := diamondEnv(t)
	a, err := NewQLearning(env, "A", "D", DefaultQLearning())
	if err != nil {
		t.Fatal(err)
	}
	nodeA, nodeB := mustNode(t, env, "A"), mustNode(t, env, "B")
	a.QTable().Set(int(nodeB.ID()), 2, 5)

	a.Learn(nodeA, 1, nodeB, 10)

	// 0.9 * (10 + 0.1*5 - 0)
	want := 9.45
	if got := a.QTable().At(int(nodeA.ID()), 1); got < want-1e-9 || got > want+1e-9 {
		t.Errorf("Q[A][1] = %v, want %v", got, want)
	}
}

func TestStep(t *testing.T) {
	env := diamondEnv(t)
	hp := DefaultQLearning()
	r := hp.Rewards
	nodeA, nodeB := mustNode(t, env, "A"), mustNode(t, env, "B")

	t.Run("invalid action stays in place", func(t *testing.T) {
		a, _ := NewQLearning(env, "A", "D", hp)
		ab := mustEdges(t, env, "AB")
		res, err := a.Step(3, []*element.Node{nodeA, nodeB}, ab)
		if err != nil {
			t.Fatal(err)
		}
		if res.NextState != nodeB || res.NextEdge != ab[0] || res.Terminate {
			t.Errorf("got %+v, want to stay at B", res)
		}
		if res.Reward != r.Continue+r.Invalid {
			t.Errorf("reward = %v, want %v", res.Reward, r.Continue+r.Invalid)
		}
	})

	t.Run("completion", func(t *testing.T) {
		a, _ := NewQLearning(env, "A", "D", hp)
		res, err := a.Step(0, []*element.Node{nodeA, nodeB}, mustEdges(t, env, "AB"))
		if err != nil {
			t.Fatal(err)
		}
		if res.NextState.Name() != "D" || !res.Terminate {
			t.Errorf("got %+v, want to terminate at D", res)
		}
		if res.Reward != r.Continue+r.Completion {
			t.Errorf("reward = %v, want %v", res.Reward, r.Continue+r.Completion)
		}
	})

	t.Run("dead end backtracks to bottleneck", func(t *testing.T) {
		a, _ := NewQLearning(env, "A", "D", hp)
		nodeE := mustNode(t, env, "E")
		res, err := a.Step(0, []*element.Node{nodeA, nodeE}, mustEdges(t, env, "AE"))
		if err != nil {
			t.Fatal(err)
		}
		if res.NextState.Name() != "F" || !res.Terminate {
			t.Errorf("got %+v, want to terminate at F", res)
		}
		if res.Reward != r.Continue+r.DeadEnd {
			t.Errorf("reward = %v, want %v", res.Reward, r.Continue+r.DeadEnd)
		}
		label := env.Network().Label(mustEdges(t, env, "AE")[0])
		if got := a.QTable().At(int(nodeA.ID()), label); got != r.DeadEnd {
			t.Errorf("Q[A][%d] = %v, want %v", label, got, r.DeadEnd)
		}
	})
}

func TestStepLoop(t *testing.T) {
	env := buildEnv(t,
		[]testNode{{"P", 0, 0}, {"Q", 1, 0}, {"R", 0, 1}, {"S", 5, 5}},
		[]testEdge{{"PQ", "P", "Q", 1}, {"QR", "Q", "R", 1}, {"RP", "R", "P", 1}},
		element.EvalDistance,
	)
	hp := DefaultQLearning()
	a, err := NewQLearning(env, "P", "S", hp)
	if err != nil {
		t.Fatal(err)
	}

	nodes := []*element.Node{mustNode(t, env, "P"), mustNode(t, env, "Q"), mustNode(t, env, "R"), mustNode(t, env, "P"), mustNode(t, env, "Q")}
	res, err := a.Step(0, nodes, mustEdges(t, env, "PQ", "QR", "RP", "PQ"))
	if err != nil {
		t.Fatal(err)
	}
	if want := hp.Rewards.Continue + hp.Rewards.Loop; res.Reward != want {
		t.Errorf("reward = %v, want %v", res.Reward, want)
	}

	// 第一次经过不算循环
	res, err = a.Step(0, nodes[:2], mustEdges(t, env, "PQ"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Reward != hp.Rewards.Continue {
		t.Errorf("reward = %v, want %v", res.Reward, hp.Rewards.Continue)
	}
}

func TestStepBonusOnBetterRoute(t *testing.T) {
	env := buildEnv(t,
		[]testNode{{"A", 0, 0}, {"B", 1, 1}, {"D", 2, 0}},
		[]testEdge{{"AB", "A", "B", 1}, {"BD", "B", "D", 1}, {"AD", "A", "D", 3}},
		element.EvalDistance,
	)
	hp := DefaultQLearning()
	a, err := NewQLearning(env, "A", "D", hp)
	if err != nil {
		t.Fatal(err)
	}
	nodeA, nodeB := mustNode(t, env, "A"), mustNode(t, env, "B")
	ab := mustEdges(t, env, "AB")
	abLabel := env.Network().Label(ab[0])
	adLabel := env.Network().Label(mustEdges(t, env, "AD")[0])

	// 第一次到达只记录基准
	if _, err := a.Step(adLabel, []*element.Node{nodeA}, nil); err != nil {
		t.Fatal(err)
	}
	if got := a.QTable().At(int(nodeA.ID()), abLabel); got != 0 {
		t.Fatalf("Q[A][%d] = %v before bonus, want 0", abLabel, got)
	}

	if _, err := a.Step(0, []*element.Node{nodeA, nodeB}, ab); err != nil {
		t.Fatal(err)
	}
	if got := a.QTable().At(int(nodeA.ID()), abLabel); got != hp.Rewards.Bonus {
		t.Errorf("Q[A][%d] = %v, want %v", abLabel, got, hp.Rewards.Bonus)
	}
}

func TestTrainConverges(t *testing.T) {
	env := diamondEnv(t)
	sarsaHP, epsilon := DefaultSARSA()

	tests := []struct {
		name  string
		agent func() (*Agent, error)
	}{
		{"q-learning", func() (*Agent, error) {
			return NewQLearning(env, "A", "D", DefaultQLearning())
		}},
		{"sarsa", func() (*Agent, error) {
			return NewSARSA(env, "A", "D", sarsaHP, epsilon, rand.New(rand.NewSource(7)))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tt.agent()
			if err != nil {
				t.Fatal(err)
			}
			result, err := a.Train(500, 5)
			if err != nil {
				t.Fatalf("Train: %v", err)
			}
			cost, err := env.Cost(result.EdgePath)
			if err != nil {
				t.Fatal(err)
			}
			if cost != 2 {
				t.Errorf("cost = %v, want 2 (edges %v)", cost, result.EdgePath)
			}
			if last := result.NodePath[len(result.NodePath)-1]; last.Name() != "D" {
				t.Errorf("route ends at %s, want D", last.Name())
			}
			if result.Episode <= 5 || len(result.Logs) != result.Episode+1 {
				t.Errorf("episode = %d with %d logs", result.Episode, len(result.Logs))
			}

			series, err := Performance(env, result.Logs)
			if err != nil {
				t.Fatal(err)
			}
			if len(series) != len(result.Logs) || series[len(series)-1] != 2 {
				t.Errorf("performance series = %v", series)
			}
		})
	}
}

func TestTrainNonConvergence(t *testing.T) {
	env := diamondEnv(t)
	a, err := NewQLearning(env, "A", "D", DefaultQLearning())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Train(3, 5); !errors.Is(err, ErrNonConvergence) {
		t.Errorf("err = %v, want ErrNonConvergence", err)
	}
}

func TestNewRejectsUnknownNodes(t *testing.T) {
	env := diamondEnv(t)
	if _, err := NewQLearning(env, "A", "Z", DefaultQLearning()); !errors.Is(err, element.ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}
