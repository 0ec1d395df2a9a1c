package frame

import (
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// keySep はGroupKeyの文字列表現で値を区切る。CSVの値には現れない。
const keySep = "\x1f"

// GroupKey はグループ化列の値の組（列順）
type GroupKey []string

// String は map のキーに使える安定した表現を返す
func (k GroupKey) String() string {
	return strings.Join(k, keySep)
}

// Label は人が読むための表現を返す
func (k GroupKey) Label() string {
	return strings.Join(k, " / ")
}

// RowKeys は各行の GroupKey を返す。valid[i] はグループ化列のいずれかが
// 欠損している行で false になり、その行はどのグループにも属さない。
func RowKeys(df dataframe.DataFrame, columns []string) (keys []GroupKey, valid []bool, err error) {
	if err := RequireColumns(df, "frame.RowKeys", columns...); err != nil {
		return nil, nil, err
	}

	n := df.Nrow()
	keys = make([]GroupKey, n)
	valid = make([]bool, n)
	for i := range valid {
		keys[i] = make(GroupKey, len(columns))
		valid[i] = true
	}
	for j, name := range columns {
		s := df.Col(name)
		records := s.Records()
		for i := 0; i < n; i++ {
			if s.Elem(i).IsNA() {
				valid[i] = false
			}
			keys[i][j] = records[i]
		}
	}
	return keys, valid, nil
}
