// Package mlcore provides classical machine learning algorithms for Go,
// built from first principles on top of gonum.
//
// mlcore offers a scikit-learn-like API with proper statistical inference:
// linear models report standard errors, t-statistics, p-values and
// F-statistics alongside their coefficients, the way R's lm() does.
//
// # Installation
//
// Install mlcore using go get:
//
//	go get github.com/YuminosukeSato/mlcore
//
// # Quick Start
//
// Here's a simple example of linear regression:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//	    "github.com/YuminosukeSato/mlcore/linear"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    // Create training data
//	    X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
//	    y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})
//
//	    // Create and train model
//	    model := linear.NewLinearRegression()
//	    if err := model.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Make predictions
//	    X_test := mat.NewDense(2, 1, []float64{5, 6})
//	    predictions, err := model.Predict(X_test)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    fmt.Println("Predictions:", predictions)
//	}
//
// # Packages
//
// The library is organized into several packages:
//
//   - linear: Linear models (LinearRegression, Ridge, LogisticRegression)
//   - cluster: Clustering algorithms (KMeans)
//   - metrics: Evaluation metrics (MSE, RMSE, MAE, R², accuracy, AUC)
//   - preprocessing: Data preprocessing utilities (StandardScaler, MinMaxScaler)
//   - modelselection: Train/test splitting, K-fold cross-validation
//   - dataset: CSV loading and synthetic data generation
//   - plotting: Diagnostic plots for fitted models
//   - core/model: Core interfaces, state management and persistence
//   - core/linalg: Shared linear algebra helpers (SVD checks, design matrices)
//   - core/parallel: Parallel processing utilities
//
// # Statistical Inference
//
// Models trained with statistics enabled expose an R-style summary:
//
//	model := linear.NewLinearRegression(linear.WithLRStats(true))
//	if err := model.Fit(X, y); err != nil {
//	    log.Fatal(err)
//	}
//	summary, _ := model.Summary()
//	fmt.Println(summary)
//
// # Performance
//
// mlcore parallelizes automatically for datasets with more than 1000 rows,
// using all available CPU cores. All estimators are safe for concurrent
// prediction after fitting.
//
// # License
//
// mlcore is released under the MIT License.
package mlcore
