// Package storage persists recipe images.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// MaxImageSize bounds a decoded upload
const MaxImageSize = 5 << 20

var ErrInvalidImage = errors.New("invalid image")

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Image is a decoded upload ready to be stored
type Image struct {
	Data      []byte
	MIME      string
	Extension string
}

// ImageStore saves images and returns the public reference written on the recipe
type ImageStore interface {
	Save(ctx context.Context, img *Image) (string, error)
	// Delete removes a previously saved image; unknown references are ignored
	Delete(ctx context.Context, ref string) error
}

// DecodeBase64Image accepts either a data URL ("data:image/png;base64,...")
// or bare base64 and sniffs the real content type from the bytes.
func DecodeBase64Image(value string) (*Image, error) {
	payload := strings.TrimSpace(value)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("%w: malformed data URL", ErrInvalidImage)
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageSize)
	}

	mt := mimetype.Detect(data)
	if !allowedImageTypes[mt.String()] {
		return nil, fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, mt.String())
	}
	return &Image{Data: data, MIME: mt.String(), Extension: mt.Extension()}, nil
}
