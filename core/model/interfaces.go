// Package model provides additional interfaces and types for machine learning models.
// This file complements the existing interfaces in estimator.go and transformer.go
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Estimator
	Predictor
	Scorer
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Predictor

	// PredictProba returns probability estimates for each class.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting.
	Classes() []int
}

// Clusterer is the interface for clustering models, which learn without
// target labels.
type Clusterer interface {
	// Fit learns cluster parameters from the data.
	Fit(X mat.Matrix) error

	// Predict assigns each sample to the nearest learned cluster.
	Predict(X mat.Matrix) ([]int, error)

	// NClusters returns the number of clusters.
	NClusters() int
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// Persistable is the interface for models that can be saved and loaded.
type Persistable interface {
	// Save saves the model to a file.
	Save(path string) error

	// Load loads the model from a file.
	Load(path string) error
}

// WeightExporter is the interface for models whose learned state can be
// exported to and restored from a portable ModelWeights value.
type WeightExporter interface {
	// ExportWeights returns the learned parameters of the model.
	ExportWeights() (*ModelWeights, error)

	// ImportWeights restores the learned parameters of the model.
	ImportWeights(w *ModelWeights) error
}
