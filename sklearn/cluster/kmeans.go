package cluster

import (
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// KMeans はLloyd法によるK-meansクラスタリングの設定
// scikit-learnのKMeans(init="k-means++")と同じ手順で学習する
type KMeans struct {
	// ハイパーパラメータ
	nClusters   int     // クラスタ数
	init        string  // 初期化方法: "k-means++", "random"
	maxIter     int     // 最大イテレーション数
	tol         float64 // 収束判定の許容誤差（特徴量の平均分散に対する比）
	nInit       int     // 異なる初期化での実行回数
	randomState int64   // 乱数シード
	seeded      bool    // false なら時刻で初期化
}

// FittedKMeans は学習済みのKMeans
type FittedKMeans struct {
	// Centers はクラスタ中心（nClusters x nFeatures）
	Centers [][]float64
	// Labels は各サンプルのクラスタラベル
	Labels []int
	// Inertia はクラスタ内平方和誤差（distortion）
	Inertia float64
	// NIter は最良の実行で行われたイテレーション数
	NIter int
}

// KMeansOption はKMeansの設定オプション
type KMeansOption func(*KMeans)

// NewKMeans は新しいKMeansを作成
func NewKMeans(options ...KMeansOption) *KMeans {
	kmeans := &KMeans{
		nClusters:   8,
		init:        "k-means++",
		maxIter:     300,
		tol:         1e-4,
		nInit:       10,
	}

	for _, opt := range options {
		opt(kmeans)
	}

	return kmeans
}

// WithKMeansNClusters はクラスタ数を設定
func WithKMeansNClusters(n int) KMeansOption {
	return func(kmeans *KMeans) {
		kmeans.nClusters = n
	}
}

// WithKMeansInit は初期化方法を設定
func WithKMeansInit(init string) KMeansOption {
	return func(kmeans *KMeans) {
		kmeans.init = init
	}
}

// WithKMeansMaxIter は最大イテレーション数を設定
func WithKMeansMaxIter(maxIter int) KMeansOption {
	return func(kmeans *KMeans) {
		kmeans.maxIter = maxIter
	}
}

// WithKMeansNInit は初期化の試行回数を設定
func WithKMeansNInit(nInit int) KMeansOption {
	return func(kmeans *KMeans) {
		kmeans.nInit = nInit
	}
}

// WithKMeansRandomState は乱数シードを設定
func WithKMeansRandomState(seed int64) KMeansOption {
	return func(kmeans *KMeans) {
		kmeans.randomState = seed
		kmeans.seeded = true
	}
}

// WithKMeansTol は収束判定の許容誤差を設定
func WithKMeansTol(tol float64) KMeansOption {
	return func(kmeans *KMeans) {
		kmeans.tol = tol
	}
}

// NClusters returns the configured number of clusters.
func (kmeans *KMeans) NClusters() int {
	return kmeans.nClusters
}

// Fit は nInit 回の初期化からinertiaが最小の結果を返す
func (kmeans *KMeans) Fit(X mat.Matrix) (*FittedKMeans, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError("KMeans.Fit", "empty data", errors.ErrEmptyData)
	}
	if kmeans.nClusters < 1 {
		return nil, errors.NewValidationError("n_clusters", "must be at least 1", kmeans.nClusters)
	}
	if rows < kmeans.nClusters {
		return nil, errors.NewValueError("KMeans.Fit",
			"n_samples is smaller than n_clusters")
	}
	if kmeans.nInit < 1 {
		return nil, errors.NewValidationError("n_init", "must be at least 1", kmeans.nInit)
	}
	if err := errors.CheckMatrix("KMeans.Fit", X, rows, cols, false); err != nil {
		return nil, err
	}

	seed := kmeans.randomState
	if !kmeans.seeded {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	samples := make([][]float64, rows)
	for i := range samples {
		samples[i] = mat.Row(nil, i, X)
	}
	tol := kmeans.tol * meanVariance(X)

	var best *FittedKMeans
	for run := 0; run < kmeans.nInit; run++ {
		result := kmeans.fitSingleRun(samples, cols, tol, rng)
		if best == nil || result.Inertia < best.Inertia {
			best = result
		}
	}

	if best.NIter >= kmeans.maxIter {
		errors.Warn(errors.NewConvergenceWarning("KMeans", best.NIter,
			"maximum number of iterations reached before the centres stabilised"))
	}
	return best, nil
}

// fitSingleRun は単一回のLloyd反復を実行
func (kmeans *KMeans) fitSingleRun(samples [][]float64, cols int, tol float64, rng *rand.Rand) *FittedKMeans {
	centers := kmeans.initializeCenters(samples, cols, rng)
	labels := make([]int, len(samples))

	nIter := 0
	for nIter < kmeans.maxIter {
		nIter++
		assign(samples, centers, labels)

		next := make([][]float64, len(centers))
		counts := make([]int, len(centers))
		for c := range next {
			next[c] = make([]float64, cols)
		}
		for i, sample := range samples {
			floats.Add(next[labels[i]], sample)
			counts[labels[i]]++
		}
		for c := range next {
			if counts[c] == 0 {
				// 空クラスタは現在の中心から最も遠いサンプルへ移す
				copy(next[c], samples[farthestSample(samples, centers, labels)])
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}

		shift := 0.0
		for c := range centers {
			d := floats.Distance(centers[c], next[c], 2)
			shift += d * d
		}
		centers = next
		if shift <= tol {
			break
		}
	}

	assign(samples, centers, labels)
	return &FittedKMeans{
		Centers: centers,
		Labels:  labels,
		Inertia: inertia(samples, centers, labels),
		NIter:   nIter,
	}
}

// Predict は各サンプルの最近傍クラスタを返す
func (f *FittedKMeans) Predict(X mat.Matrix) ([]int, error) {
	rows, cols := X.Dims()
	if len(f.Centers) > 0 && cols != len(f.Centers[0]) {
		return nil, errors.NewDimensionError("KMeans.Predict", len(f.Centers[0]), cols, 1)
	}
	labels := make([]int, rows)
	for i := range labels {
		labels[i] = findNearestCluster(mat.Row(nil, i, X), f.Centers)
	}
	return labels, nil
}

// NClusters returns the number of fitted centres.
func (f *FittedKMeans) NClusters() int {
	return len(f.Centers)
}

// initializeCenters はクラスタ中心を初期化
func (kmeans *KMeans) initializeCenters(samples [][]float64, cols int, rng *rand.Rand) [][]float64 {
	if kmeans.init == "random" {
		centers := make([][]float64, kmeans.nClusters)
		for c, idx := range rng.Perm(len(samples))[:kmeans.nClusters] {
			centers[c] = append(make([]float64, 0, cols), samples[idx]...)
		}
		return centers
	}
	// デフォルトはk-means++
	return initKMeansPlusPlus(samples, kmeans.nClusters, cols, rng)
}

// initKMeansPlusPlus はk-means++初期化を実行
func initKMeansPlusPlus(samples [][]float64, k, cols int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, append(make([]float64, 0, cols), samples[rng.Intn(len(samples))]...))

	distances := make([]float64, len(samples))
	for len(centers) < k {
		// 各サンプルから最近傍クラスタ中心までの距離の二乗
		for i, sample := range samples {
			d := floats.Distance(sample, centers[findNearestCluster(sample, centers)], 2)
			distances[i] = d * d
		}
		total := floats.Sum(distances)

		// 距離の二乗に比例した確率でサンプルを選択
		selected := rng.Intn(len(samples))
		if total > 0 {
			target := rng.Float64() * total
			cumSum := 0.0
			for i, d := range distances {
				cumSum += d
				if cumSum >= target && d > 0 {
					selected = i
					break
				}
			}
		}
		centers = append(centers, append(make([]float64, 0, cols), samples[selected]...))
	}
	return centers
}

func assign(samples, centers [][]float64, labels []int) {
	for i, sample := range samples {
		labels[i] = findNearestCluster(sample, centers)
	}
}

// findNearestCluster は最近傍クラスタを検索
func findNearestCluster(sample []float64, centers [][]float64) int {
	minDist := math.Inf(1)
	nearest := 0
	for c, center := range centers {
		if dist := floats.Distance(sample, center, 2); dist < minDist {
			minDist = dist
			nearest = c
		}
	}
	return nearest
}

func farthestSample(samples, centers [][]float64, labels []int) int {
	farthest, maxDist := 0, -1.0
	for i, sample := range samples {
		if d := floats.Distance(sample, centers[labels[i]], 2); d > maxDist {
			farthest, maxDist = i, d
		}
	}
	return farthest
}

// inertia は慣性（クラスタ内平方和誤差）を計算
func inertia(samples, centers [][]float64, labels []int) float64 {
	total := 0.0
	for i, sample := range samples {
		d := floats.Distance(sample, centers[labels[i]], 2)
		total += d * d
	}
	return total
}

func meanVariance(X mat.Matrix) float64 {
	rows, cols := X.Dims()
	col := make([]float64, rows)
	sum := 0.0
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		sum += stat.PopVariance(col, nil)
	}
	return sum / float64(cols)
}
