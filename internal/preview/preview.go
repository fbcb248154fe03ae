package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/gif"
	_ "image/png"
	"strings"

	"github.com/nfnt/resize"

	"chat-client-app/internal/logger"
)

const (
	thumbMaxSize = 300
	jpegQuality  = 85
)

// Generate returns a render-ready data URL for a staged file. Image content
// is downscaled to a thumbnail first; anything else is encoded as-is. A
// failed image decode falls back to the raw data URL and is logged, not
// swallowed.
func Generate(fileType string, data []byte) string {
	if strings.HasPrefix(fileType, "image/") {
		thumb, err := thumbnail(data)
		if err == nil {
			return dataURL("image/jpeg", thumb)
		}
		logger.Warn("preview thumbnail failed, using raw data", "type", fileType, "error", err)
	}
	return dataURL(fileType, data)
}

func thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	thumb := resize.Thumbnail(thumbMaxSize, thumbMaxSize, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func dataURL(fileType string, data []byte) string {
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	return "data:" + fileType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
