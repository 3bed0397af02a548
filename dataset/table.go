// Package dataset はCSV読み込みとデモ用の合成データ生成を提供する。
package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mlcore/pkg/errors"
)

// csvConfig はLoadCSVの動作を制御する設定。
type csvConfig struct {
	comma  rune
	target string
}

// CSVOption はLoadCSVの挙動を変更するオプション。
type CSVOption func(*csvConfig)

// WithComma は区切り文字を変更する（デフォルトはカンマ）。
func WithComma(comma rune) CSVOption {
	return func(c *csvConfig) {
		c.comma = comma
	}
}

// WithTarget は目的変数の列名を宣言する。宣言された列に数値でない
// セルがあると読み込みはエラーになる。他の列の数値でないセルは
// NaNとして格納され、列ごとに一度だけDataConversionWarningを発行する。
func WithTarget(name string) CSVOption {
	return func(c *csvConfig) {
		c.target = name
	}
}

// Table はヘッダー付きCSVから読み込んだfloat64の表。
type Table struct {
	// Columns は列名。ヘッダー行がないファイルでは x1, x2, ... が生成される
	Columns []string

	data *mat.Dense
}

// LoadCSV はCSVファイルをTableに読み込む。
//
// 先頭行のいずれかのセルが数値として解釈できない場合、その行は
// ヘッダーとして扱われる。行の長さが揃っていない場合は行番号を含む
// エラーを返す。
func LoadCSV(path string, opts ...CSVOption) (*Table, error) {
	cfg := csvConfig{comma: ','}
	for _, opt := range opts {
		opt(&cfg)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = cfg.comma
	records, err := reader.ReadAll()
	if err != nil {
		// 長さの揃わない行はencoding/csvが行番号付きで報告する
		return nil, errors.Wrapf(err, "dataset: read %s", path)
	}
	if len(records) == 0 {
		return nil, errors.NewValueError("dataset.LoadCSV", "file has no rows")
	}

	start := 0
	var columns []string
	if isHeaderRow(records[0]) {
		columns = records[0]
		start = 1
	} else {
		columns = make([]string, len(records[0]))
		for j := range columns {
			columns[j] = fmt.Sprintf("x%d", j+1)
		}
	}

	rows := len(records) - start
	if rows == 0 {
		return nil, errors.NewValueError("dataset.LoadCSV", "file has a header but no data rows")
	}
	cols := len(columns)

	targetCol := -1
	if cfg.target != "" {
		for j, name := range columns {
			if name == cfg.target {
				targetCol = j
				break
			}
		}
		if targetCol < 0 {
			return nil, errors.NewValueError("dataset.LoadCSV",
				fmt.Sprintf("target column %q not found in header %v", cfg.target, columns))
		}
	}

	data := mat.NewDense(rows, cols, nil)
	warned := make([]bool, cols)
	for i := 0; i < rows; i++ {
		record := records[i+start]
		for j := 0; j < cols; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[j]), 64)
			if err != nil {
				if j == targetCol {
					return nil, errors.NewValueError("dataset.LoadCSV",
						fmt.Sprintf("target column %q has non-numeric value %q on line %d",
							cfg.target, record[j], i+start+1))
				}
				if !warned[j] {
					errors.Warn(errors.NewDataConversionWarning("string", "float64",
						fmt.Sprintf("column %q contains non-numeric values, stored as NaN", columns[j])))
					warned[j] = true
				}
				v = math.NaN()
			}
			data.Set(i, j, v)
		}
	}

	return &Table{Columns: columns, data: data}, nil
}

// isHeaderRow は行内に数値として読めないセルがあるかを調べる。
func isHeaderRow(record []string) bool {
	for _, cell := range record {
		if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err != nil {
			return true
		}
	}
	return false
}

// NumRows は行数を返す。
func (t *Table) NumRows() int {
	r, _ := t.data.Dims()
	return r
}

// NumCols は列数を返す。
func (t *Table) NumCols() int {
	_, c := t.data.Dims()
	return c
}

// Matrix は全列を含む行列を返す。
func (t *Table) Matrix() *mat.Dense {
	return mat.DenseCopyOf(t.data)
}

// Column は指定した列を抽出する。
func (t *Table) Column(name string) (*mat.VecDense, error) {
	j, err := t.columnIndex(name)
	if err != nil {
		return nil, err
	}
	r := t.NumRows()
	col := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		col.SetVec(i, t.data.At(i, j))
	}
	return col, nil
}

// Features は目的変数の列を分離し、説明変数行列Xと目的変数ベクトルyを返す。
func (t *Table) Features(target string) (*mat.Dense, *mat.VecDense, error) {
	targetCol, err := t.columnIndex(target)
	if err != nil {
		return nil, nil, err
	}

	r, c := t.data.Dims()
	if c < 2 {
		return nil, nil, errors.NewValueError("dataset.Features",
			"table needs at least one feature column besides the target")
	}

	X := mat.NewDense(r, c-1, nil)
	y := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		k := 0
		for j := 0; j < c; j++ {
			if j == targetCol {
				y.SetVec(i, t.data.At(i, j))
				continue
			}
			X.Set(i, k, t.data.At(i, j))
			k++
		}
	}
	return X, y, nil
}

// FeatureNames は目的変数を除いた列名を返す。
func (t *Table) FeatureNames(target string) []string {
	names := make([]string, 0, len(t.Columns))
	for _, name := range t.Columns {
		if name != target {
			names = append(names, name)
		}
	}
	return names
}

func (t *Table) columnIndex(name string) (int, error) {
	for j, col := range t.Columns {
		if col == name {
			return j, nil
		}
	}
	return 0, errors.NewValueError("dataset",
		fmt.Sprintf("column %q not found in %v", name, t.Columns))
}
