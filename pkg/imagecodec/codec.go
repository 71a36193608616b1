package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultQuality は JPEG 出力の既定品質（0〜1）です。
const DefaultQuality = 0.95

// ErrDecode は画像データを解釈できなかったことを表します。
var ErrDecode = errors.New("image decode failed")

// Format は出力エンコーディングの種類です。
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
)

// MIMEType は Format に対応する MIME タイプを返します。
func (f Format) MIMEType() string {
	if f == FormatPNG {
		return MIMEPNG
	}
	return MIMEJPEG
}

func (f Format) imagingFormat() imaging.Format {
	if f == FormatPNG {
		return imaging.PNG
	}
	return imaging.JPEG
}

// Decode は Buffer を画素データに変換します。
// 対応していない形式や壊れたデータの場合は ErrDecode をラップしたエラーを返します。
func Decode(buf Buffer) (image.Image, error) {
	if buf.IsZero() {
		return nil, fmt.Errorf("%w: 空のデータです", ErrDecode)
	}
	img, err := imaging.Decode(bytes.NewReader(buf.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %w", ErrDecode, buf.MIMEType, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: 画像サイズが不正です (%dx%d)", ErrDecode, b.Dx(), b.Dy())
	}
	return img, nil
}

// DecodeConfig は画素を展開せずに画像の幅と高さだけを読み取ります。
func DecodeConfig(buf Buffer) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Encode は画像を指定形式でエンコードします。quality は 0〜1 で、JPEG のときだけ使われます。
func Encode(img image.Image, format Format, quality float64) (Buffer, error) {
	var out bytes.Buffer
	err := imaging.Encode(&out, img, format.imagingFormat(), imaging.JPEGQuality(jpegQuality(quality)))
	if err != nil {
		return Buffer{}, fmt.Errorf("画像のエンコードに失敗しました: %w", err)
	}
	return Buffer{MIMEType: format.MIMEType(), Data: out.Bytes()}, nil
}

// Blank は単色で塗りつぶした画像を JPEG で生成します。
func Blank(width, height int, fill color.Color) (Buffer, error) {
	if width <= 0 || height <= 0 {
		return Buffer{}, fmt.Errorf("画像サイズが不正です: %dx%d", width, height)
	}
	canvas := imaging.New(width, height, fill)
	return Encode(canvas, FormatJPEG, DefaultQuality)
}

// jpegQuality は 0〜1 の品質を JPEG の 1〜100 に変換します。
func jpegQuality(q float64) int {
	if math.IsNaN(q) || q <= 0 {
		return 1
	}
	v := int(math.Round(q * 100))
	if v > 100 {
		return 100
	}
	if v < 1 {
		return 1
	}
	return v
}
