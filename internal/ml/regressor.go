// Package ml defines the regressor contract used by the horizon predictor
// and ships a histogram-based gradient boosted tree implementation.
package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrRegressorUnavailable is returned by a factory that cannot build models.
	ErrRegressorUnavailable = errors.New("regressor unavailable")
	// ErrNotFitted is returned when predicting with a model that was never fit.
	ErrNotFitted = errors.New("regressor not fitted")
	// ErrInvalidInput is returned for empty or ragged training data.
	ErrInvalidInput = errors.New("invalid training input")
)

// Regressor is a supervised model mapping a feature vector to a scalar.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) (float64, error)
	// FeatureImportances returns one non-negative score per training column.
	FeatureImportances() []float64
}

// Params configures a boosted ensemble.
type Params struct {
	NEstimators    int     `mapstructure:"n_estimators" yaml:"n_estimators"`
	LearningRate   float64 `mapstructure:"learning_rate" yaml:"learning_rate"`
	MaxDepth       int     `mapstructure:"max_depth" yaml:"max_depth"`
	NumLeaves      int     `mapstructure:"num_leaves" yaml:"num_leaves"`
	MinSamplesLeaf int     `mapstructure:"min_samples_leaf" yaml:"min_samples_leaf"`
	MaxBins        int     `mapstructure:"max_bins" yaml:"max_bins"`
}

// DefaultParams mirrors the usual LightGBM defaults for small tabular sets.
func DefaultParams() Params {
	return Params{
		NEstimators:    100,
		LearningRate:   0.05,
		MaxDepth:       6,
		NumLeaves:      31,
		MinSamplesLeaf: 20,
		MaxBins:        255,
	}
}

// Validate reports the first invalid field.
func (p Params) Validate() error {
	switch {
	case p.NEstimators < 1:
		return fmt.Errorf("n_estimators must be positive, got %d", p.NEstimators)
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return fmt.Errorf("learning_rate must be in (0, 1], got %v", p.LearningRate)
	case p.MaxDepth < 1:
		return fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth)
	case p.NumLeaves < 2:
		return fmt.Errorf("num_leaves must be at least 2, got %d", p.NumLeaves)
	case p.MinSamplesLeaf < 1:
		return fmt.Errorf("min_samples_leaf must be positive, got %d", p.MinSamplesLeaf)
	case p.MaxBins < 2 || p.MaxBins > 65535:
		return fmt.Errorf("max_bins must be in [2, 65535], got %d", p.MaxBins)
	}
	return nil
}

// Factory builds untrained regressors.
type Factory interface {
	New(p Params) (Regressor, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(p Params) (Regressor, error)

// New calls f(p).
func (f FactoryFunc) New(p Params) (Regressor, error) {
	return f(p)
}

// GBMFactory builds gradient boosted tree regressors.
var GBMFactory Factory = FactoryFunc(func(p Params) (Regressor, error) {
	return NewGBM(p)
})

// UnavailableFactory always fails. It stands in when model training is
// switched off so callers exercise their fallback path.
var UnavailableFactory Factory = FactoryFunc(func(Params) (Regressor, error) {
	return nil, ErrRegressorUnavailable
})

// Score returns the coefficient of determination of r on (X, y).
func Score(r Regressor, X [][]float64, y []float64) (float64, error) {
	pred := make([]float64, len(X))
	for i, row := range X {
		v, err := r.Predict(row)
		if err != nil {
			return 0, err
		}
		pred[i] = v
	}
	return R2(y, pred), nil
}

// R2 is 1 - SSres/SStot. A constant target scores 1 when predicted exactly
// and 0 otherwise.
func R2(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}

	var mean float64
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(len(yTrue))

	var ssRes, ssTot float64
	for i, v := range yTrue {
		d := v - yPred[i]
		ssRes += d * d
		m := v - mean
		ssTot += m * m
	}

	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
