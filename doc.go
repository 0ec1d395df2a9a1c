// Package carprice is a toolkit for preparing used-vehicle price data for
// supervised models.
//
// It provides two pipelines built on gota DataFrames and gonum matrices:
//
//   - pipeline/groupcluster groups vehicles by categorical columns such as
//     manufacturer and model, clusters the groups by their mean and median
//     price and adds the cluster id to every row as a new feature.
//   - pipeline/tabular splits a dataset into train, validation and test
//     partitions, imputes the vehicle age, one-hot encodes categorical
//     columns, applies max-abs scaling and saves the fitted transformers.
//
// # Quick Start
//
//	data, err := frame.ReadCSVFile("vehicles.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	gc, err := groupcluster.New(data, []string{"manufacturer", "model"},
//	    groupcluster.WithRandomState(42))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	clustered, err := gc.AnalyzeAndCluster()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tp, err := tabular.New(clustered.Data,
//	    []string{"manufacturer", clustered.Column.Label, "vehicle_age", "price"},
//	    tabular.WithRandomState(42))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	processed, err := tp.GetProcessedDataset()
//
// # Packages
//
//   - frame: CSV loading and column helpers over gota DataFrames
//   - preprocessing: StandardScaler, MaxAbsScaler, SimpleImputer, OneHotEncoder
//   - sklearn/cluster: KMeans, elbow search and silhouette scores
//   - linear: ordinary least squares LinearRegression
//   - metrics: R², adjusted R², RMSE, MAE and purchase probability
//   - visualize: elbow, silhouette and cluster plots
//   - pipeline: the generic stage runner both pipelines use
//   - core/model: estimator interfaces and gob artifact persistence
//   - pkg/errors, pkg/log: structured errors and zerolog-backed logging
//
// The carprice command in cmd/carprice exposes both pipelines and a linear
// baseline evaluation.
package carprice
