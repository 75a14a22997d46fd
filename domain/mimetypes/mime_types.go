package mimetypes

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type MIME string

const (
	Unknown   MIME = "unknown"
	TextPlain MIME = "text/plain"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWEBP MIME = "image/webp"
	ImageBMP  MIME = "image/bmp"
)

// Detect sniffs the media type of raw bytes, dropping any parameter such as charset.
func Detect(data []byte) MIME {
	if len(data) == 0 {
		return Unknown
	}
	mt, _, err := mime.ParseMediaType(mimetype.Detect(data).String())
	if err != nil {
		return Unknown
	}
	return MIME(mt)
}

// IsImage reports whether m is any image/* type.
func (m MIME) IsImage() bool {
	return strings.HasPrefix(string(m), "image/")
}

func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}
