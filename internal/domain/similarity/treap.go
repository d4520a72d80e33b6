package similarity

import (
	"hash/fnv"
	"math"
)

// Bounded treap that keeps the best K candidates.
//
// Ordering: score DESC, then userID ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields best to worst and
// the rightmost node is always the current worst.

// scoreScale controls fixed-point scaling from float64. Scores live in [0,1].
const scoreScale = 1_000_000_000_000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	return scoreFP(math.Round(math.Max(-1, math.Min(1, x)) * scoreScale))
}

type node struct {
	id    string
	score scoreFP
	raw   float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// idPriority hashes the id so the tree shape depends only on the input set.
func idPriority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func insert(n *node, id string, score scoreFP, raw float64) *node {
	if n == nil {
		return &node{id: id, score: score, raw: raw, prio: idPriority(id), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, raw)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, raw)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// deleteLast removes the rightmost (worst ranked) node.
func deleteLast(n *node) *node {
	if n == nil {
		return nil
	}
	if n.right == nil {
		return n.left
	}
	n.right = deleteLast(n.right)
	fix(n)
	return n
}

func last(n *node) *node {
	if n == nil {
		return nil
	}
	for n.right != nil {
		n = n.right
	}
	return n
}

// topK keeps at most limit candidates.
type topK struct {
	root  *node
	limit int
}

func newTopK(limit int) *topK {
	return &topK{limit: limit}
}

// offer inserts a candidate when it beats the current worst or there is room.
func (t *topK) offer(id string, score float64) {
	if t.limit <= 0 {
		return
	}
	fp := toFixedPoint(score)
	if nsize(t.root) >= t.limit {
		worst := last(t.root)
		if !less(fp, id, worst.score, worst.id) {
			return
		}
		t.root = deleteLast(t.root)
	}
	t.root = insert(t.root, id, fp, score)
}

func (t *topK) len() int { return nsize(t.root) }

// collect appends entries in rank order (best first).
func collect(n *node, out *[]Match) {
	if n == nil {
		return
	}
	collect(n.left, out)
	*out = append(*out, Match{UserID: n.id, Score: n.raw})
	collect(n.right, out)
}

func (t *topK) items() []Match {
	out := make([]Match, 0, t.len())
	collect(t.root, &out)
	return out
}
