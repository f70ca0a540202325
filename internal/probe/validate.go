package probe

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"strconv"
	"strings"

	// Register decoders for standard formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/net/html"
)

// Validate reports whether data is an icon with nonzero dimensions.
// It accepts ICO/CUR, SVG documents and anything image.DecodeConfig knows.
func Validate(data []byte) error {
	if w, h, ok, err := icoDimensions(data); ok {
		if err != nil {
			return err
		}
		return checkDimensions(w, h)
	}

	if svg, err := svgCheck(data); svg {
		return err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return checkDimensions(cfg.Width, cfg.Height)
}

func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrZeroDimension, w, h)
	}
	return nil
}

// icoDimensions reads the first directory entry of an ICO or CUR file.
// ok is false when data does not carry an ICONDIR header.
func icoDimensions(data []byte) (w, h int, ok bool, err error) {
	if len(data) < 6 || data[0] != 0 || data[1] != 0 {
		return 0, 0, false, nil
	}
	kind := binary.LittleEndian.Uint16(data[2:4])
	if kind != 1 && kind != 2 {
		return 0, 0, false, nil
	}

	count := binary.LittleEndian.Uint16(data[4:6])
	if count == 0 {
		return 0, 0, true, fmt.Errorf("%w: icon directory is empty", ErrZeroDimension)
	}
	if len(data) < 6+16 {
		return 0, 0, true, fmt.Errorf("%w: truncated icon directory", ErrNotImage)
	}

	// A stored size of 0 means 256 pixels.
	w, h = int(data[6]), int(data[7])
	if w == 0 {
		w = 256
	}
	if h == 0 {
		h = 256
	}
	return w, h, true, nil
}

// svgCheck reports whether data is an SVG document, that is, whether the
// first element is <svg>. A document with an explicit zero width or height
// yields ErrZeroDimension.
func svgCheck(data []byte) (bool, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if trimmed := bytes.TrimLeft(data, " \t\r\n"); len(trimmed) == 0 || trimmed[0] != '<' {
		return false, nil
	}

	z := html.NewTokenizer(bytes.NewReader(data))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false, nil
		case html.CommentToken, html.DoctypeToken:
			// <?xml ...?> tokenizes as a comment
			continue
		case html.TextToken:
			if strings.TrimSpace(string(z.Text())) != "" {
				return false, nil
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "svg" {
				return false, nil
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				k := string(key)
				if (k == "width" || k == "height") && zeroLength(string(val)) {
					return true, fmt.Errorf("%w: svg %s=%q", ErrZeroDimension, k, val)
				}
			}
			return true, nil
		default:
			return false, nil
		}
	}
}

// zeroLength reports whether an SVG length attribute is explicitly zero.
func zeroLength(v string) bool {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "px")
	n, err := strconv.ParseFloat(v, 64)
	return err == nil && n == 0
}
