// Package frame はgotaのDataFrameを車両データセットとして扱うための補助関数を提供する。
//
// DataFrame は値として扱い、ここにある関数はどれも入力を変更せず新しい値を返す。
package frame

import (
	"io"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// PriceColumn は目的変数の列名
const PriceColumn = "price"

// NATokens は欠損値として読み込むCSVのトークン
var NATokens = []string{"", "NA", "NaN", "nan", "null", "NULL"}

// ReadCSV はCSVを読み込み、型を推定したDataFrameを返す
func ReadCSV(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(NATokens),
	)
	if df.Err != nil {
		return df, errors.Wrap(df.Err, "read csv")
	}
	return df, nil
}

// ReadCSVFile はファイルからCSVを読み込む
func ReadCSVFile(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	df, err := ReadCSV(f)
	if err != nil {
		return df, errors.Wrapf(err, "load %s", path)
	}
	return df, nil
}

// WriteCSVFile はDataFrameをCSVとして書き出す。既存のファイルは上書きされる。
func WriteCSVFile(df dataframe.DataFrame, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	if err := df.WriteCSV(f); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}

// HasColumn は列が存在するかどうかを返す
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// RequireColumns は全ての列が存在することを検証し、欠けている列を MissingColumnError で返す
func RequireColumns(df dataframe.DataFrame, op string, columns ...string) error {
	present := make(map[string]struct{}, df.Ncol())
	for _, n := range df.Names() {
		present[n] = struct{}{}
	}
	var missing []string
	for _, c := range columns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingColumnError(op, missing...)
	}
	return nil
}

// IsNumeric は列が数値型（Int, Float, Bool）かどうかを返す
func IsNumeric(s series.Series) bool {
	switch s.Type() {
	case series.Int, series.Float, series.Bool:
		return true
	default:
		return false
	}
}

// CategoricalColumns は String 型の列名を元の順序で返す
func CategoricalColumns(df dataframe.DataFrame) []string {
	var out []string
	for i, t := range df.Types() {
		if t == series.String {
			out = append(out, df.Names()[i])
		}
	}
	return out
}

// NumericColumns は数値型の列名を元の順序で返す
func NumericColumns(df dataframe.DataFrame) []string {
	var out []string
	for i, t := range df.Types() {
		if t != series.String {
			out = append(out, df.Names()[i])
		}
	}
	return out
}

// Floats は数値列を []float64 で返す。欠損値は NaN になる。
func Floats(df dataframe.DataFrame, name string) ([]float64, error) {
	if err := RequireColumns(df, "frame.Floats", name); err != nil {
		return nil, err
	}
	s := df.Col(name)
	if !IsNumeric(s) {
		return nil, errors.NewValidationError(name, "column must be numeric", s.Type())
	}
	return s.Float(), nil
}

// Strings は列を文字列で返す。欠損値は "NaN" になる。
func Strings(df dataframe.DataFrame, name string) ([]string, error) {
	if err := RequireColumns(df, "frame.Strings", name); err != nil {
		return nil, err
	}
	return df.Col(name).Records(), nil
}

// Matrix は指定した数値列を行列にまとめる。欠損値は NaN になる。
func Matrix(df dataframe.DataFrame, columns []string) (*mat.Dense, error) {
	if df.Nrow() == 0 || len(columns) == 0 {
		return nil, errors.NewModelError("frame.Matrix", "empty data", errors.ErrEmptyData)
	}
	m := mat.NewDense(df.Nrow(), len(columns), nil)
	for j, name := range columns {
		col, err := Floats(df, name)
		if err != nil {
			return nil, err
		}
		m.SetCol(j, col)
	}
	return m, nil
}

// ReplaceFloats は name 列を values で置き換えた新しいDataFrameを返す
func ReplaceFloats(df dataframe.DataFrame, name string, values []float64) (dataframe.DataFrame, error) {
	out := df.Mutate(series.New(values, series.Float, name))
	if out.Err != nil {
		return df, errors.Wrapf(out.Err, "replace column %s", name)
	}
	return out, nil
}

// Subset は指定した行だけを持つ新しいDataFrameを返す
func Subset(df dataframe.DataFrame, rows []int) (dataframe.DataFrame, error) {
	out := df.Subset(rows)
	if out.Err != nil {
		return df, errors.Wrap(out.Err, "subset rows")
	}
	return out, nil
}

// Select は指定した列だけを持つ新しいDataFrameを返す
func Select(df dataframe.DataFrame, columns []string) (dataframe.DataFrame, error) {
	if err := RequireColumns(df, "frame.Select", columns...); err != nil {
		return df, err
	}
	out := df.Select(columns)
	if out.Err != nil {
		return df, errors.Wrap(out.Err, "select columns")
	}
	return out, nil
}

// Drop は指定した列を除いた新しいDataFrameを返す
func Drop(df dataframe.DataFrame, columns ...string) (dataframe.DataFrame, error) {
	if err := RequireColumns(df, "frame.Drop", columns...); err != nil {
		return df, err
	}
	out := df.Drop(columns)
	if out.Err != nil {
		return df, errors.Wrap(out.Err, "drop columns")
	}
	return out, nil
}

// CheckUnique は列名リストに重複がないことを検証する
func CheckUnique(param string, columns []string) error {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, ok := seen[c]; ok {
			return errors.NewValidationError(param, "duplicate column "+c, strings.Join(columns, ","))
		}
		seen[c] = struct{}{}
	}
	return nil
}
