package linear

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/mlcore/core/model"
)

// このファイルは各モデルにgobシリアライゼーションを実装する。
// 学習済みパラメータはModelWeightsへ橋渡しして符号化されるため、
// gob経由の保存・復元はExportWeights/ImportWeightsと同じ検証
// （モデル種別・チェックサム）を通る。

func encodeWeights(w *model.ModelWeights) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeWeights(data []byte) (*model.ModelWeights, error) {
	w := &model.ModelWeights{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(w); err != nil {
		return nil, err
	}
	return w, nil
}

// GobEncode は学習済みパラメータをModelWeights経由で符号化する。
// 未学習のモデルはNotFittedErrorで符号化を拒否する。
func (lr *LinearRegression) GobEncode() ([]byte, error) {
	w, err := lr.ExportWeights()
	if err != nil {
		return nil, err
	}
	return encodeWeights(w)
}

// GobDecode はModelWeightsから学習済みパラメータを復元する。
// ゼロ値のレシーバ（var reg LinearRegression）への復号にも対応する。
func (lr *LinearRegression) GobDecode(data []byte) error {
	w, err := decodeWeights(data)
	if err != nil {
		return err
	}
	if lr.state == nil {
		*lr = *NewLinearRegression()
	}
	return lr.ImportWeights(w)
}

// GobEncode は学習済みパラメータをModelWeights経由で符号化する。
func (rg *Ridge) GobEncode() ([]byte, error) {
	w, err := rg.ExportWeights()
	if err != nil {
		return nil, err
	}
	return encodeWeights(w)
}

// GobDecode はModelWeightsから学習済みパラメータを復元する。
func (rg *Ridge) GobDecode(data []byte) error {
	w, err := decodeWeights(data)
	if err != nil {
		return err
	}
	if rg.state == nil {
		*rg = *NewRidge()
	}
	return rg.ImportWeights(w)
}

// GobEncode は学習済みパラメータをModelWeights経由で符号化する。
// ExportWeightsと同様、二値分類モデルのみ対応する。
func (lr *LogisticRegression) GobEncode() ([]byte, error) {
	w, err := lr.ExportWeights()
	if err != nil {
		return nil, err
	}
	return encodeWeights(w)
}

// GobDecode はModelWeightsから学習済みパラメータを復元する。
func (lr *LogisticRegression) GobDecode(data []byte) error {
	w, err := decodeWeights(data)
	if err != nil {
		return err
	}
	if lr.state == nil {
		*lr = *NewLogisticRegression()
	}
	return lr.ImportWeights(w)
}
