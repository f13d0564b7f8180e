package ocr

import "errors"

// ErrUnsupportedFormat is returned when a file is not a decodable image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrEmptyImage is returned for images without pixels.
var ErrEmptyImage = errors.New("empty image")
