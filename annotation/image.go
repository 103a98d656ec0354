package annotation

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
)

// SniffDimensions decodes just the header of an encoded image and returns its
// width and height.
func SniffDimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// ResolveImageName picks the name an image is uploaded under: the explicit
// request name, else the source file's base name, else a generated one.
func ResolveImageName(req UploadImageRequest) string {
	if req.Name != "" {
		return req.Name
	}
	if req.Source.Path != "" {
		return filepath.Base(req.Source.Path)
	}
	if req.Source.Link != "" {
		if base := filepath.Base(req.Source.Link); base != "." && base != "/" {
			return base
		}
	}
	return uuid.NewString() + ".jpg"
}

// ReadImageSource resolves the source to raw bytes. Link sources are not
// fetched client-side; callers pass links through to the backend.
func ReadImageSource(s ImageSource) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Path != "" {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", s.Path, err)
		}
		return data, nil
	}
	if len(s.Data) > 0 {
		return s.Data, nil
	}
	return nil, fmt.Errorf("image source %q is a link, no local bytes", s.Link)
}
