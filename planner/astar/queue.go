package astar

import (
	"container/heap"

	"github.com/jhc-asv/ribbon-planner/config"
)

// vertexQueue is a container/heap priority queue. Ties are broken lower-h
// first, then lower-g, then insertion order, so the search stays
// deterministic whenever two vertices land on the same f-value.
type vertexQueue struct {
	nodes []*vertex
	cfg   config.PlannerConfig
	next  int
}

func (q vertexQueue) Len() int { return len(q.nodes) }
func (q vertexQueue) Less(i, j int) bool {
	a, b := q.nodes[i], q.nodes[j]
	af, bf := a.fValue(q.cfg), b.fValue(q.cfg)
	if af != bf {
		return af < bf
	}
	ah, bh := a.hValue(q.cfg), b.hValue(q.cfg)
	if ah != bh {
		return ah < bh
	}
	ag, bg := a.gValue(), b.gValue()
	if ag != bg {
		return ag < bg
	}
	return a.seq < b.seq
}
func (q vertexQueue) Swap(i, j int) { q.nodes[i], q.nodes[j] = q.nodes[j], q.nodes[i] }

func (q *vertexQueue) Push(x interface{}) {
	v := x.(*vertex)
	v.seq = q.next
	q.next++
	q.nodes = append(q.nodes, v)
}

func (q *vertexQueue) Pop() interface{} {
	n := len(q.nodes)
	x := q.nodes[n-1]
	q.nodes = q.nodes[:n-1]
	return x
}

func newVertexQueue(cfg config.PlannerConfig) *vertexQueue {
	q := &vertexQueue{cfg: cfg}
	heap.Init(q)
	return q
}

func (q *vertexQueue) push(v *vertex) { heap.Push(q, v) }
func (q *vertexQueue) pop() *vertex   { return heap.Pop(q).(*vertex) }
