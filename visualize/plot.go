// Package visualize はクラスタリングの診断図をgonum/plotで描画する。
// 出力形式は保存先の拡張子（.png, .svg, .pdf など）で決まる。
package visualize

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

const (
	width  = 6 * vg.Inch
	height = 4 * vg.Inch
)

// ElbowPlot は k ごとの distortion 曲線と選ばれた k を描画する
func ElbowPlot(ks []int, distortions []float64, chosen int, title, path string) error {
	if len(ks) == 0 || len(ks) != len(distortions) {
		return errors.NewDimensionError("visualize.ElbowPlot", len(ks), len(distortions), 0)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "k"
	p.Y.Label.Text = "distortion score"

	pts := make(plotter.XYs, len(ks))
	for i, k := range ks {
		pts[i] = plotter.XY{X: float64(k), Y: distortions[i]}
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return errors.Wrap(err, "elbow line")
	}
	line.Color = color.RGBA{B: 200, A: 255}
	points.Shape = draw.CircleGlyph{}
	p.Add(line, points)

	lo, hi := minMax(distortions)
	marker, err := plotter.NewLine(plotter.XYs{
		{X: float64(chosen), Y: lo},
		{X: float64(chosen), Y: hi},
	})
	if err != nil {
		return errors.Wrap(err, "elbow marker")
	}
	marker.Color = color.RGBA{R: 220, A: 255}
	marker.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(marker)
	p.Legend.Add(fmt.Sprintf("elbow at k=%d", chosen), marker)

	return save(p, path)
}

// SilhouettePlot はクラスタごとにソートしたシルエット係数と平均値を描画する
func SilhouettePlot(scores []float64, labels []int, mean float64, title, path string) error {
	if len(scores) == 0 || len(scores) != len(labels) {
		return errors.NewDimensionError("visualize.SilhouettePlot", len(scores), len(labels), 0)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "silhouette coefficient"
	p.Y.Label.Text = "groups"

	byCluster := make(map[int][]float64)
	for i, l := range labels {
		byCluster[l] = append(byCluster[l], scores[i])
	}
	clusters := make([]int, 0, len(byCluster))
	for l := range byCluster {
		clusters = append(clusters, l)
	}
	sort.Ints(clusters)

	y := 0.0
	for _, l := range clusters {
		values := byCluster[l]
		sort.Float64s(values)
		pts := make(plotter.XYs, len(values))
		for i, v := range values {
			pts[i] = plotter.XY{X: v, Y: y}
			y++
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return errors.Wrapf(err, "silhouette cluster %d", l)
		}
		s.Color = plotutil.Color(l)
		s.Shape = draw.BoxGlyph{}
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("cluster %d", l), s)
		// クラスタ間の余白
		y += 2
	}

	avg, err := plotter.NewLine(plotter.XYs{{X: mean, Y: 0}, {X: mean, Y: y}})
	if err != nil {
		return errors.Wrap(err, "silhouette mean")
	}
	avg.Color = color.RGBA{R: 220, A: 255}
	avg.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(avg)
	p.Legend.Add(fmt.Sprintf("mean %.3f", mean), avg)

	return save(p, path)
}

// ClusterScatter は先頭2特徴量で各点をクラスタ色に塗り、中心を×で描画する
func ClusterScatter(X [][]float64, labels []int, centers [][]float64, title, path string) error {
	if len(X) == 0 || len(X) != len(labels) {
		return errors.NewDimensionError("visualize.ClusterScatter", len(X), len(labels), 0)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "mean price (standardised)"
	p.Y.Label.Text = "median price (standardised)"

	for k := range centers {
		pts := make(plotter.XYs, 0)
		for i, l := range labels {
			if l == k && len(X[i]) >= 2 {
				pts = append(pts, plotter.XY{X: X[i][0], Y: X[i][1]})
			}
		}
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return errors.Wrapf(err, "cluster %d", k)
		}
		s.Color = plotutil.Color(k)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("cluster %d", k), s)
	}

	centroidPts := make(plotter.XYs, 0, len(centers))
	for _, c := range centers {
		if len(c) >= 2 {
			centroidPts = append(centroidPts, plotter.XY{X: c[0], Y: c[1]})
		}
	}
	if len(centroidPts) > 0 {
		c, err := plotter.NewScatter(centroidPts)
		if err != nil {
			return errors.Wrap(err, "centroids")
		}
		c.Color = color.RGBA{A: 255}
		c.Shape = draw.CrossGlyph{}
		c.Radius = vg.Points(5)
		p.Add(c)
	}

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create plot directory for %s", path)
	}
	if err := p.Save(width, height, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}

func minMax(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
