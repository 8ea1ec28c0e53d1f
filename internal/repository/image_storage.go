package repository

import (
	"context"
	"errors"
	"io"
)

// 画像として受け付けられない（形式・サイズ）
var ErrInvalidImage = errors.New("invalid image")

// 商品画像の保存先。返り値はproducts.image_pathに入れる参照
type ImageStorage interface {
	Save(ctx context.Context, filename string, contentType string, r io.Reader) (string, error)
}
