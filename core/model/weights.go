package model

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
)

// ModelWeights はモデルの重みを表す構造体（シリアライゼーション用）
type ModelWeights struct {
	// ModelType はモデルの種類（LinearRegression, Ridge等）
	ModelType string `json:"model_type"`

	// Version はモデルのバージョン（互換性チェック用）
	Version string `json:"version"`

	// Coefficients は重み係数
	Coefficients []float64 `json:"coefficients"`

	// Intercept は切片
	Intercept float64 `json:"intercept"`

	// Features は特徴量の名前（オプション）
	Features []string `json:"features,omitempty"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metadata は追加のメタデータ（学習時の統計等）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	return json.Unmarshal(data, mw)
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return fmt.Errorf("model_type is required")
	}

	if mw.Version == "" {
		return fmt.Errorf("version is required")
	}

	if !mw.IsFitted && len(mw.Coefficients) > 0 {
		return fmt.Errorf("unfitted model should not have coefficients")
	}

	if mw.IsFitted && len(mw.Coefficients) == 0 {
		return fmt.Errorf("fitted model must have coefficients")
	}

	return nil
}

// Checksum は係数と切片からSHA-256チェックサムを計算する。
// エクスポート時にMetadataへ記録し、インポート時の改竄・破損検出に使う。
func (mw *ModelWeights) Checksum() string {
	h := sha256.New()
	for _, c := range mw.Coefficients {
		fmt.Fprintf(h, "%.17g,", c)
	}
	fmt.Fprintf(h, "%.17g", mw.Intercept)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// StampChecksum はMetadataにチェックサムを記録する。
func (mw *ModelWeights) StampChecksum() {
	if mw.Metadata == nil {
		mw.Metadata = make(map[string]interface{})
	}
	mw.Metadata["checksum"] = mw.Checksum()
}

// VerifyChecksum はMetadataのチェックサムと再計算値を照合する。
// チェックサムが記録されていない場合は検証をスキップする。
func (mw *ModelWeights) VerifyChecksum() error {
	if mw.Metadata == nil {
		return nil
	}
	recorded, ok := mw.Metadata["checksum"].(string)
	if !ok || recorded == "" {
		return nil
	}
	if actual := mw.Checksum(); actual != recorded {
		return fmt.Errorf("weights checksum mismatch: recorded %s, computed %s", recorded, actual)
	}
	return nil
}

// SaveToFile はModelWeightsをJSONファイルとして保存する
func (mw *ModelWeights) SaveToFile(path string) error {
	data, err := mw.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize weights: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write weights file: %w", err)
	}
	return nil
}

// LoadWeightsFromFile はJSONファイルからModelWeightsを読み込み、検証する
func LoadWeightsFromFile(path string) (*ModelWeights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	mw := &ModelWeights{}
	if err := mw.FromJSON(data); err != nil {
		return nil, fmt.Errorf("failed to parse weights file: %w", err)
	}
	if err := mw.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights file: %w", err)
	}
	if err := mw.VerifyChecksum(); err != nil {
		return nil, err
	}
	return mw, nil
}

// Clone はModelWeightsのディープコピーを作成
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := &ModelWeights{
		ModelType:       mw.ModelType,
		Version:         mw.Version,
		Intercept:       mw.Intercept,
		IsFitted:        mw.IsFitted,
		Coefficients:    make([]float64, len(mw.Coefficients)),
		Features:        make([]string, len(mw.Features)),
		Hyperparameters: make(map[string]interface{}),
		Metadata:        make(map[string]interface{}),
	}

	copy(clone.Coefficients, mw.Coefficients)
	copy(clone.Features, mw.Features)

	for k, v := range mw.Hyperparameters {
		clone.Hyperparameters[k] = v
	}

	for k, v := range mw.Metadata {
		clone.Metadata[k] = v
	}

	return clone
}
