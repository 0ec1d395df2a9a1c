package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// SaveModel はモデルをファイルに保存する。既存のファイルは上書きされる。
//
// 使用例:
//
//	fitted, _ := preprocessing.NewMaxAbsScaler().Fit(X)
//	err := model.SaveModel(fitted, "model_scaler.gob")
func SaveModel(model interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %s", filename)
	}
	defer file.Close()

	if err := SaveModelToWriter(model, file); err != nil {
		return err
	}
	return file.Close()
}

// LoadModel はファイルからモデルを読み込む
//
// 使用例:
//
//	var scaler preprocessing.FittedMaxAbsScaler
//	err := model.LoadModel(&scaler, "model_scaler.gob")
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open file %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveArtifact は dir/name にモデルを保存し、書き込んだパスを返す。
// dir が存在しない場合は作成する。
func SaveArtifact(dir, name string, model interface{}) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create artifact directory %s", dir)
	}
	path := filepath.Join(dir, name)
	if err := SaveModel(model, path); err != nil {
		return "", err
	}
	return path, nil
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
