package services

import (
	"chat-board/domain/mimetypes"
	"encoding/base64"
	"fmt"
	"strings"
)

// decodeImage accepts raw standard base64 or a data URL ("data:image/png;base64,...").
// The declared media type is ignored, the bytes are sniffed instead.
func decodeImage(payload string) ([]byte, mimetypes.MIME, error) {
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, mimetypes.Unknown, fmt.Errorf("data URL without ','")
		}
		payload = payload[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, mimetypes.Unknown, fmt.Errorf("invalid base64: %w", err)
	}
	return data, mimetypes.Detect(data), nil
}
