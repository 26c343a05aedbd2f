package ml

import (
	"math"
)

type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	leaf      bool
}

// tree is a binary regression tree stored as a flat node slice; node 0 is
// the root. Samples with x[feature] <= threshold go left.
type tree struct {
	nodes []treeNode
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.leaf {
			return n.value
		}
		if v := x[n.feature]; v <= n.threshold || math.IsNaN(v) {
			i = n.left
		} else {
			i = n.right
		}
	}
}

type split struct {
	feature int
	bin     int
	gain    float64
}

// growLeaf is a candidate leaf during leaf-wise growth.
type growLeaf struct {
	node    int
	samples []int
	depth   int
	sum     float64
	best    split
}

type treeBuilder struct {
	binned   [][]uint16
	mappers  []binMapper
	grad     []float64
	params   Params
	splitCnt []float64
}

// build grows one tree on the residuals leaf-wise: the leaf with the best
// gain splits next until NumLeaves is reached or no split improves the loss.
// It returns the tree and, per sample, the fitted leaf value.
func (b *treeBuilder) build(samples []int) (*tree, []float64) {
	t := &tree{nodes: []treeNode{{leaf: true}}}
	root := b.newLeaf(0, samples, 0)
	leaves := []*growLeaf{root}

	for len(leaves) < b.params.NumLeaves {
		bestIdx := -1
		for i, l := range leaves {
			if l.best.gain > 0 && (bestIdx < 0 || l.best.gain > leaves[bestIdx].best.gain) {
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}

		parent := leaves[bestIdx]
		leftS, rightS := b.partition(parent)

		leftNode := len(t.nodes)
		rightNode := leftNode + 1
		t.nodes = append(t.nodes, treeNode{leaf: true}, treeNode{leaf: true})
		t.nodes[parent.node] = treeNode{
			feature:   parent.best.feature,
			threshold: b.mappers[parent.best.feature].edges[parent.best.bin],
			left:      leftNode,
			right:     rightNode,
		}
		b.splitCnt[parent.best.feature]++

		left := b.newLeaf(leftNode, leftS, parent.depth+1)
		right := b.newLeaf(rightNode, rightS, parent.depth+1)
		leaves[bestIdx] = left
		leaves = append(leaves, right)
	}

	fitted := make([]float64, len(b.grad))
	for _, l := range leaves {
		v := b.params.LearningRate * l.sum / float64(len(l.samples))
		t.nodes[l.node].value = v
		for _, s := range l.samples {
			fitted[s] = v
		}
	}
	return t, fitted
}

func (b *treeBuilder) newLeaf(node int, samples []int, depth int) *growLeaf {
	l := &growLeaf{node: node, samples: samples, depth: depth}
	for _, s := range samples {
		l.sum += b.grad[s]
	}
	l.best = split{feature: -1}
	if depth < b.params.MaxDepth && len(samples) >= 2*b.params.MinSamplesLeaf {
		l.best = b.findSplit(l)
	}
	return l
}

func (b *treeBuilder) findSplit(l *growLeaf) split {
	best := split{feature: -1}
	n := float64(len(l.samples))
	parentScore := l.sum * l.sum / n
	minLeaf := b.params.MinSamplesLeaf

	for f, m := range b.mappers {
		bins := m.numBins()
		if bins < 2 {
			continue
		}
		sums := make([]float64, bins)
		counts := make([]int, bins)
		col := b.binned[f]
		for _, s := range l.samples {
			bin := col[s]
			sums[bin] += b.grad[s]
			counts[bin]++
		}

		var leftSum float64
		var leftCnt int
		for k := 0; k < bins-1; k++ {
			leftSum += sums[k]
			leftCnt += counts[k]
			rightCnt := len(l.samples) - leftCnt
			if leftCnt < minLeaf {
				continue
			}
			if rightCnt < minLeaf {
				break
			}
			rightSum := l.sum - leftSum
			gain := leftSum*leftSum/float64(leftCnt) + rightSum*rightSum/float64(rightCnt) - parentScore
			if gain > best.gain+1e-12 {
				best = split{feature: f, bin: k, gain: gain}
			}
		}
	}
	return best
}

func (b *treeBuilder) partition(l *growLeaf) (left, right []int) {
	col := b.binned[l.best.feature]
	threshold := uint16(l.best.bin)
	for _, s := range l.samples {
		if col[s] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	return left, right
}
