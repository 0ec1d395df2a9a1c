package preprocessing

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// MissingCategory は欠損値を表すカテゴリ。ソート時は常に最後に置かれる。
const MissingCategory = "NaN"

// UnknownSuffix は UnknownBucket で追加される列名の接尾辞
const UnknownSuffix = "infrequent_unknown"

// UnknownPolicy は学習時に見なかったカテゴリの扱い方
type UnknownPolicy int

const (
	// UnknownZero は未知カテゴリを全て0のブロックとして符号化する（デフォルト）
	UnknownZero UnknownPolicy = iota
	// UnknownError は未知カテゴリを UnknownCategoryError として拒否する
	UnknownError
	// UnknownBucket は特徴量ごとに未知カテゴリ用の指示列を追加する
	UnknownBucket
)

// String returns the policy name used in configuration.
func (p UnknownPolicy) String() string {
	switch p {
	case UnknownError:
		return "error"
	case UnknownBucket:
		return "bucket"
	default:
		return "zero"
	}
}

// ParseUnknownPolicy converts a configuration value into an UnknownPolicy.
func ParseUnknownPolicy(name string) (UnknownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "zero", "ignore":
		return UnknownZero, nil
	case "error":
		return UnknownError, nil
	case "bucket", "infrequent":
		return UnknownBucket, nil
	default:
		return UnknownZero, errors.NewValidationError("unknown_categories", "must be one of zero, error, bucket", name)
	}
}

// OneHotEncoder はカテゴリ列を drop-first の one-hot 表現に変換する設定
type OneHotEncoder struct {
	Policy UnknownPolicy
}

// FittedOneHotEncoder は学習済みのOneHotEncoder
type FittedOneHotEncoder struct {
	// Features は入力列名
	Features []string

	// Categories は列ごとのソート済みカテゴリ。先頭は出力されない
	Categories [][]string

	// Policy は未知カテゴリの扱い方
	Policy UnknownPolicy

	// FeatureNamesOut は出力列名（"列名_カテゴリ"）
	FeatureNamesOut []string
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder(policy UnknownPolicy) *OneHotEncoder {
	return &OneHotEncoder{Policy: policy}
}

// Fit は列ごとのカテゴリを学習する。columns は列優先で、columns[j][i] が
// i 行目の features[j] の値。
func (e *OneHotEncoder) Fit(features []string, columns [][]string) (*FittedOneHotEncoder, error) {
	if len(features) != len(columns) {
		return nil, errors.NewDimensionError("OneHotEncoder.Fit", len(features), len(columns), 1)
	}
	if _, err := rowCount("OneHotEncoder.Fit", columns); err != nil {
		return nil, err
	}

	fitted := &FittedOneHotEncoder{
		Features:   append([]string(nil), features...),
		Categories: make([][]string, len(features)),
		Policy:     e.Policy,
	}
	for j, col := range columns {
		fitted.Categories[j] = sortedCategories(col)
		for _, cat := range fitted.Categories[j][1:] {
			fitted.FeatureNamesOut = append(fitted.FeatureNamesOut, features[j]+"_"+cat)
		}
		if e.Policy == UnknownBucket {
			fitted.FeatureNamesOut = append(fitted.FeatureNamesOut, features[j]+"_"+UnknownSuffix)
		}
	}
	return fitted, nil
}

// NOutputs は出力列数を返す
func (e *FittedOneHotEncoder) NOutputs() int {
	return len(e.FeatureNamesOut)
}

// CountUnknown は学習時に見なかった値の個数を返す
func (e *FittedOneHotEncoder) CountUnknown(columns [][]string) int {
	n := 0
	for j, col := range columns {
		if j >= len(e.Categories) {
			break
		}
		index := e.index(j)
		for _, v := range col {
			if _, ok := index[v]; !ok {
				n++
			}
		}
	}
	return n
}

// CheckUnknown は UnknownError ポリシーのとき、学習時に見なかった最初の値を
// UnknownCategoryError として返す。出力列が0でも検査する。
func (e *FittedOneHotEncoder) CheckUnknown(columns [][]string) error {
	if e.Policy != UnknownError {
		return nil
	}
	for j, col := range columns {
		if j >= len(e.Categories) {
			break
		}
		index := e.index(j)
		for i, v := range col {
			if _, ok := index[v]; !ok {
				return errors.NewUnknownCategoryError(e.Features[j], v, i)
			}
		}
	}
	return nil
}

// Transform は one-hot 行列を返す。先頭カテゴリの行は全て0になる。
func (e *FittedOneHotEncoder) Transform(columns [][]string) (*mat.Dense, error) {
	if len(columns) != len(e.Features) {
		return nil, errors.NewDimensionError("OneHotEncoder.Transform", len(e.Features), len(columns), 1)
	}
	r, err := rowCount("OneHotEncoder.Transform", columns)
	if err != nil {
		return nil, err
	}
	if e.NOutputs() == 0 {
		return nil, errors.NewValueError("OneHotEncoder.Transform", "encoder produces no output columns")
	}

	result := mat.NewDense(r, e.NOutputs(), nil)
	offset := 0
	for j, col := range columns {
		index := e.index(j)
		width := len(e.Categories[j]) - 1
		for i, v := range col {
			pos, ok := index[v]
			switch {
			case ok && pos > 0:
				result.Set(i, offset+pos-1, 1)
			case ok:
				// 先頭カテゴリは drop される
			case e.Policy == UnknownError:
				return nil, errors.NewUnknownCategoryError(e.Features[j], v, i)
			case e.Policy == UnknownBucket:
				result.Set(i, offset+width, 1)
			}
		}
		offset += width
		if e.Policy == UnknownBucket {
			offset++
		}
	}
	return result, nil
}

func (e *FittedOneHotEncoder) index(j int) map[string]int {
	index := make(map[string]int, len(e.Categories[j]))
	for pos, cat := range e.Categories[j] {
		index[cat] = pos
	}
	return index
}

func sortedCategories(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	hasMissing := false
	cats := make([]string, 0)
	for _, v := range values {
		if v == MissingCategory {
			hasMissing = true
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			cats = append(cats, v)
		}
	}
	sort.Strings(cats)
	if hasMissing {
		cats = append(cats, MissingCategory)
	}
	return cats
}

func rowCount(op string, columns [][]string) (int, error) {
	if len(columns) == 0 || len(columns[0]) == 0 {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	r := len(columns[0])
	for _, col := range columns[1:] {
		if len(col) != r {
			return 0, errors.NewDimensionError(op, r, len(col), 0)
		}
	}
	return r, nil
}
