// Package media decodes uploaded recipe images and stores them on disk.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// MaxImageSize caps decoded uploads.
const MaxImageSize = 10 << 20

var (
	ErrNotDataURI     = errors.New("image must be a data URI: data:image/<ext>;base64,<payload>")
	ErrInvalidImage   = errors.New("upload a valid image")
	ErrImageTooLarge  = errors.New("image is too large")
	ErrUnsupportedExt = errors.New("unsupported image format")
)

// Upload is a verified image ready to be stored.
type Upload struct {
	Name string // temp.<ext>
	Data []byte
}

var allowedExt = map[string]string{
	"png":  "png",
	"jpeg": "jpeg",
	"jpg":  "jpeg",
	"gif":  "gif",
	"webp": "webp",
}

// DecodeDataURI decodes "data:image/<ext>;base64,<payload>" and checks the
// payload is an image of the declared kind.
func DecodeDataURI(uri string) (*Upload, error) {
	header, payload, ok := strings.Cut(uri, ";base64,")
	if !ok || !strings.HasPrefix(header, "data:image/") {
		return nil, ErrNotDataURI
	}
	ext := strings.ToLower(strings.TrimPrefix(header, "data:image/"))
	if _, ok := allowedExt[ext]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExt, ext)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	format, err := detectFormat(data)
	if err != nil {
		return nil, err
	}
	if allowedExt[ext] != format {
		return nil, fmt.Errorf("%w: declared %s, got %s", ErrInvalidImage, ext, format)
	}

	return &Upload{Name: "temp." + ext, Data: data}, nil
}

// FromBytes verifies a raw upload such as a multipart file part.
func FromBytes(data []byte) (*Upload, error) {
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}
	format, err := detectFormat(data)
	if err != nil {
		return nil, err
	}
	return &Upload{Name: "temp." + format, Data: data}, nil
}

func detectFormat(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrInvalidImage
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if _, ok := allowedExt[format]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedExt, format)
	}
	return format, nil
}
