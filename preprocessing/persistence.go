package preprocessing

import "github.com/YuminosukeSato/carprice/core/model"

// LoadSimpleImputer は保存済みの学習済みSimpleImputerを読み込む
func LoadSimpleImputer(path string) (*FittedSimpleImputer, error) {
	var imputer FittedSimpleImputer
	if err := model.LoadModel(&imputer, path); err != nil {
		return nil, err
	}
	return &imputer, nil
}

// LoadOneHotEncoder は保存済みの学習済みOneHotEncoderを読み込む
func LoadOneHotEncoder(path string) (*FittedOneHotEncoder, error) {
	var encoder FittedOneHotEncoder
	if err := model.LoadModel(&encoder, path); err != nil {
		return nil, err
	}
	return &encoder, nil
}

// LoadMaxAbsScaler は保存済みの学習済みMaxAbsScalerを読み込む
func LoadMaxAbsScaler(path string) (*FittedMaxAbsScaler, error) {
	var scaler FittedMaxAbsScaler
	if err := model.LoadModel(&scaler, path); err != nil {
		return nil, err
	}
	return &scaler, nil
}
