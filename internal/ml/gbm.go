package ml

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// GBM is a least-squares gradient boosted tree regressor with histogram
// split finding and leaf-wise growth. Training is deterministic.
type GBM struct {
	params      Params
	init        float64
	trees       []*tree
	importances []float64
	nFeatures   int
}

// NewGBM validates p and returns an unfitted model.
func NewGBM(p Params) (*GBM, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gbm params: %w", err)
	}
	return &GBM{params: p}, nil
}

// Fit trains the ensemble on X (rows) and y. Refitting discards any
// previous trees.
func (g *GBM) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d targets", ErrInvalidInput, len(X), len(y))
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return fmt.Errorf("%w: no feature columns", ErrInvalidInput)
	}
	for i, row := range X {
		if len(row) != nFeatures {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidInput, i, len(row), nFeatures)
		}
	}

	n := len(X)
	mappers := make([]binMapper, nFeatures)
	binned := make([][]uint16, nFeatures)
	col := make([]float64, n)
	for f := 0; f < nFeatures; f++ {
		for i := range X {
			col[i] = X[i][f]
		}
		mappers[f] = newBinMapper(col, g.params.MaxBins)
		binned[f] = make([]uint16, n)
		for i, v := range col {
			binned[f][i] = uint16(mappers[f].bin(v))
		}
	}

	var init float64
	for _, v := range y {
		init += v
	}
	init /= float64(n)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = init
	}
	samples := make([]int, n)
	for i := range samples {
		samples[i] = i
	}

	builder := &treeBuilder{
		binned:   binned,
		mappers:  mappers,
		grad:     make([]float64, n),
		params:   g.params,
		splitCnt: make([]float64, nFeatures),
	}

	trees := make([]*tree, 0, g.params.NEstimators)
	for m := 0; m < g.params.NEstimators; m++ {
		for i := range y {
			builder.grad[i] = y[i] - pred[i]
		}
		t, fitted := builder.build(samples)
		trees = append(trees, t)
		for i := range pred {
			pred[i] += fitted[i]
		}
	}

	g.init = init
	g.trees = trees
	g.importances = builder.splitCnt
	g.nFeatures = nFeatures

	log.Debug().
		Int("samples", n).
		Int("features", nFeatures).
		Int("trees", len(trees)).
		Msg("Fitted gradient boosted model")
	return nil
}

// Predict returns the ensemble output for one feature vector.
func (g *GBM) Predict(x []float64) (float64, error) {
	if g.trees == nil {
		return 0, ErrNotFitted
	}
	if len(x) != g.nFeatures {
		return 0, fmt.Errorf("feature vector has %d columns, model expects %d", len(x), g.nFeatures)
	}
	out := g.init
	for _, t := range g.trees {
		out += t.predict(x)
	}
	return out, nil
}

// FeatureImportances returns split counts per feature.
func (g *GBM) FeatureImportances() []float64 {
	out := make([]float64, len(g.importances))
	copy(out, g.importances)
	return out
}

// NumTrees reports the fitted ensemble size.
func (g *GBM) NumTrees() int {
	return len(g.trees)
}
