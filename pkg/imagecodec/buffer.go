package imagecodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	// MIMEJPEG は JPEG 画像の MIME タイプです。
	MIMEJPEG = "image/jpeg"
	// MIMEPNG は PNG 画像の MIME タイプです。生成結果の MIME が不明な場合の既定値でもあります。
	MIMEPNG = "image/png"
	// MIMEWebP は WebP 画像の MIME タイプです。
	MIMEWebP = "image/webp"

	dataURIPrefix = "data:"
	base64Marker  = ";base64"
)

// ErrInvalidPayload は data URI や base64 文字列として解釈できない入力を表します。
var ErrInvalidPayload = errors.New("invalid image payload")

// Buffer は MIME タイプ付きのエンコード済み画像データです。
// 中身は不透明なバイト列として扱い、デコードは Decode に任せます。
type Buffer struct {
	MIMEType string
	Data     []byte
}

// IsZero はデータを持たない Buffer かどうかを返します。
func (b Buffer) IsZero() bool {
	return len(b.Data) == 0
}

// Clone はバイト列を複製した Buffer を返します。
func (b Buffer) Clone() Buffer {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return Buffer{MIMEType: b.MIMEType, Data: data}
}

// WithMIMEType は MIME タイプだけを差し替えた Buffer を返します。空文字の場合は fallback を使います。
func (b Buffer) WithMIMEType(mimeType, fallback string) Buffer {
	if mimeType == "" {
		mimeType = fallback
	}
	return Buffer{MIMEType: mimeType, Data: b.Data}
}

// Base64 はヘッダを含まない生の base64 文字列を返します。
func (b Buffer) Base64() string {
	return base64.StdEncoding.EncodeToString(b.Data)
}

// DataURI は "data:<mime>;base64,<payload>" 形式の文字列を返します。
func (b Buffer) DataURI() string {
	mimeType := b.MIMEType
	if mimeType == "" {
		mimeType = MIMEPNG
	}
	return dataURIPrefix + mimeType + base64Marker + "," + b.Base64()
}

// StripDataURIHeader はカンマより前のスキームヘッダを取り除き、生の base64 部分だけを返します。
// カンマを含まない文字列はそのまま返します。
func StripDataURIHeader(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ParseDataURI は data URI をデコードして Buffer を返します。
func ParseDataURI(s string) (Buffer, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, dataURIPrefix) {
		return Buffer{}, fmt.Errorf("%w: data URI ではありません", ErrInvalidPayload)
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return Buffer{}, fmt.Errorf("%w: data URI にペイロードがありません", ErrInvalidPayload)
	}

	header := s[len(dataURIPrefix):comma]
	if !strings.HasSuffix(header, base64Marker) {
		return Buffer{}, fmt.Errorf("%w: base64 以外のエンコーディングには対応していません", ErrInvalidPayload)
	}
	mimeType := strings.TrimSuffix(header, base64Marker)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	data, err := decodeBase64(s[comma+1:])
	if err != nil {
		return Buffer{}, err
	}
	return Buffer{MIMEType: mimeType, Data: data}, nil
}

// ParsePayload は data URI もしくはヘッダなしの base64 文字列を受け付けます。
// ヘッダから MIME タイプが分からない場合は fallbackMIME を使います。
func ParsePayload(s, fallbackMIME string) (Buffer, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, dataURIPrefix) {
		buf, err := ParseDataURI(s)
		if err != nil {
			return Buffer{}, err
		}
		return buf.WithMIMEType(buf.MIMEType, fallbackMIME), nil
	}

	data, err := decodeBase64(StripDataURIHeader(s))
	if err != nil {
		return Buffer{}, err
	}
	return Buffer{MIMEType: fallbackMIME, Data: data}, nil
}

func decodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: ペイロードが空です", ErrInvalidPayload)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// パディングなしの入力も受け付ける
		raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		data = raw
	}
	return data, nil
}
