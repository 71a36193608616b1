package compositor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/patrickmn/go-cache"
	"golang.org/x/image/draw"

	"github.com/shouni/go-webtoon-kit/pkg/imagecodec"
)

const (
	// DefaultDecodeCacheTTL はデコード済み画像をキャッシュしておく時間です。
	DefaultDecodeCacheTTL = 15 * time.Minute
	cacheCleanupInterval  = 5 * time.Minute

	// MaxJPEGSide は JPEG で出力できる辺の最大長です。これを超えるキャンバスは PNG で出力します。
	MaxJPEGSide = 1<<16 - 1
)

// ErrEmptyInput は結合対象の画像が 1 枚もないことを表します。
var ErrEmptyInput = errors.New("no images to stitch")

// background はキャンバスの地色です。
var background = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Compositor は複数の画像を縦一列に結合して 1 枚の画像にします。
// 同じ画像を何度も結合するため、デコード結果は内容のハッシュをキーにキャッシュします。
type Compositor struct {
	cache        *cache.Cache
	format       imagecodec.Format
	quality      float64
	interpolator draw.Interpolator
}

// Option は Compositor の設定を変更します。
type Option func(*Compositor)

// WithQuality は出力品質（0〜1）を指定します。
func WithQuality(q float64) Option {
	return func(c *Compositor) { c.quality = q }
}

// WithFormat は出力形式を指定します。
func WithFormat(f imagecodec.Format) Option {
	return func(c *Compositor) { c.format = f }
}

// WithInterpolator は拡大縮小に使う補間方法を指定します。
func WithInterpolator(i draw.Interpolator) Option {
	return func(c *Compositor) { c.interpolator = i }
}

// WithDecodeCacheTTL はデコードキャッシュの保持時間を指定します。0 以下ならキャッシュしません。
func WithDecodeCacheTTL(ttl time.Duration) Option {
	return func(c *Compositor) {
		if ttl <= 0 {
			c.cache = nil
			return
		}
		c.cache = cache.New(ttl, cacheCleanupInterval)
	}
}

// New は Compositor を初期化します。既定は JPEG 品質 0.95、CatmullRom 補間です。
func New(opts ...Option) *Compositor {
	c := &Compositor{
		cache:        cache.New(DefaultDecodeCacheTTL, cacheCleanupInterval),
		format:       imagecodec.FormatJPEG,
		quality:      imagecodec.DefaultQuality,
		interpolator: draw.CatmullRom,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StitchVertically は既定設定の Compositor で画像を結合します。
func StitchVertically(images []imagecodec.Buffer) (imagecodec.Buffer, error) {
	return New(WithDecodeCacheTTL(0)).StitchVertically(images)
}

// StitchVertically は images を与えられた順に上から並べ、最大幅に合わせて拡大した 1 枚の画像を返します。
// どれか 1 枚でもデコードできなければ ErrDecode をラップしたエラーを返し、部分的な結果は返しません。
func (c *Compositor) StitchVertically(images []imagecodec.Buffer) (imagecodec.Buffer, error) {
	if len(images) == 0 {
		return imagecodec.Buffer{}, ErrEmptyInput
	}

	decoded := make([]image.Image, len(images))
	sizes := make([]image.Point, len(images))
	for i, buf := range images {
		img, err := c.decode(buf)
		if err != nil {
			return imagecodec.Buffer{}, fmt.Errorf("%d 枚目の画像を読み込めませんでした: %w", i+1, err)
		}
		decoded[i] = img
		sizes[i] = img.Bounds().Size()
	}

	width, edges := Layout(sizes)
	canvas := imaging.New(width, edges[len(edges)-1], background)

	for i, img := range decoded {
		dst := image.Rect(0, edges[i], width, edges[i+1])
		if dst.Empty() {
			continue
		}
		if dst.Size() == img.Bounds().Size() {
			draw.Draw(canvas, dst, img, img.Bounds().Min, draw.Over)
			continue
		}
		c.interpolator.Scale(canvas, dst, img, img.Bounds(), draw.Over, nil)
	}

	format := c.format
	if format == imagecodec.FormatJPEG && (width > MaxJPEGSide || canvas.Bounds().Dy() > MaxJPEGSide) {
		slog.Info("JPEG の上限を超えるため PNG で出力します", "width", width, "height", canvas.Bounds().Dy())
		format = imagecodec.FormatPNG
	}

	slog.Debug("画像を縦に結合しました", "count", len(images), "width", width, "height", canvas.Bounds().Dy())
	return imagecodec.Encode(canvas, format, c.quality)
}

// Layout は各画像を最大幅に揃えたときの縦方向の境界を計算します。
// edges[i] から edges[i+1] までが i 枚目の行範囲で、edges の末尾がキャンバスの高さになります。
// 縦位置は浮動小数のまま累積し、境界だけを丸めるので、隙間や重なりは生じません。
func Layout(sizes []image.Point) (width int, edges []int) {
	for _, s := range sizes {
		if s.X > width {
			width = s.X
		}
	}

	edges = make([]int, len(sizes)+1)
	var y float64
	for i, s := range sizes {
		scale := float64(width) / float64(s.X)
		y += float64(s.Y) * scale
		if i == len(sizes)-1 {
			edges[i+1] = int(math.Ceil(y))
		} else {
			edges[i+1] = int(math.Round(y))
		}
	}
	return width, edges
}

func (c *Compositor) decode(buf imagecodec.Buffer) (image.Image, error) {
	if c.cache == nil {
		return imagecodec.Decode(buf)
	}

	sum := sha256.Sum256(buf.Data)
	key := hex.EncodeToString(sum[:])
	if v, found := c.cache.Get(key); found {
		if img, ok := v.(image.Image); ok {
			return img, nil
		}
	}

	img, err := imagecodec.Decode(buf)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, img, cache.DefaultExpiration)
	return img, nil
}

// CachedImages はキャッシュ中のデコード済み画像の数を返します。
func (c *Compositor) CachedImages() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.ItemCount()
}
