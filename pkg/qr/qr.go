// Package qr renders QR code images for resolved short URLs. Render is a pure
// transform from a URL and style options to raw image bytes; it holds no state
// and touches no storage.
package qr

import (
	"bytes"
	"fmt"
	"image/color"
	"image/jpeg"
	"strings"

	"github.com/skip2/go-qrcode"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatSVG  Format = "svg"
	FormatJPEG Format = "jpeg"
)

type Style string

const (
	StylePlain  Style = "plain"
	StyleStyled Style = "styled"
)

type Background string

const (
	BackgroundWhite       Background = "white"
	BackgroundTransparent Background = "transparent"
)

const defaultSize = 1024

// styledColor is the foreground used by the styled variant.
var styledColor = color.RGBA{R: 0x11, G: 0x56, B: 0xae, A: 0xff}

// Options control the rendered image. Zero values are not valid; build Options
// through ParseOptions.
type Options struct {
	Format     Format
	Style      Style
	Background Background
	Size       int
}

// ContentType returns the MIME type matching the format.
func (o Options) ContentType() string {
	switch o.Format {
	case FormatSVG:
		return "image/svg+xml"
	case FormatJPEG:
		return "image/jpeg"
	default:
		return "image/png"
	}
}

// ParseOptions validates the raw format, style and background values and
// applies the defaults (plain style, white background). JPEG output always
// uses a white background since the format has no transparency.
func ParseOptions(format, style, background string) (Options, error) {
	opts := Options{
		Style:      StylePlain,
		Background: BackgroundWhite,
		Size:       defaultSize,
	}

	switch Format(format) {
	case FormatPNG, FormatSVG, FormatJPEG:
		opts.Format = Format(format)
	case "webp":
		return Options{}, fmt.Errorf("webp encoding is not supported")
	default:
		return Options{}, fmt.Errorf("unsupported image format %q", format)
	}

	switch Style(style) {
	case "":
	case StylePlain, StyleStyled:
		opts.Style = Style(style)
	default:
		return Options{}, fmt.Errorf("unsupported style %q", style)
	}

	switch Background(background) {
	case "":
	case BackgroundWhite, BackgroundTransparent:
		opts.Background = Background(background)
	default:
		return Options{}, fmt.Errorf("unsupported background %q", background)
	}

	if opts.Format == FormatJPEG {
		opts.Background = BackgroundWhite
	}

	return opts, nil
}

// Render encodes data as a QR code image in the requested format. The styled
// variant uses a more aggressive error correction level, matching its denser
// look.
func Render(data string, opts Options) ([]byte, error) {
	level := qrcode.Low
	if opts.Style == StyleStyled {
		level = qrcode.High
	}

	code, err := qrcode.New(data, level)
	if err != nil {
		return nil, fmt.Errorf("qr: failed to encode data: %w", err)
	}

	code.ForegroundColor = color.Black
	if opts.Style == StyleStyled {
		code.ForegroundColor = styledColor
	}

	code.BackgroundColor = color.White
	if opts.Background == BackgroundTransparent {
		code.BackgroundColor = color.Transparent
	}

	switch opts.Format {
	case FormatSVG:
		return renderSVG(code, opts), nil
	case FormatJPEG:
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, code.Image(opts.Size), &jpeg.Options{Quality: 90}); err != nil {
			return nil, fmt.Errorf("qr: failed to encode jpeg: %w", err)
		}
		return buf.Bytes(), nil
	default:
		img, err := code.PNG(opts.Size)
		if err != nil {
			return nil, fmt.Errorf("qr: failed to encode png: %w", err)
		}
		return img, nil
	}
}

// renderSVG emits the QR bitmap as one SVG rect per dark module. The viewBox
// is in module units, so the image scales losslessly.
func renderSVG(code *qrcode.QRCode, opts Options) []byte {
	bitmap := code.Bitmap()
	n := len(bitmap)

	fg := "#000000"
	if opts.Style == StyleStyled {
		fg = fmt.Sprintf("#%02x%02x%02x", styledColor.R, styledColor.G, styledColor.B)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, n, n)

	if opts.Background != BackgroundTransparent {
		fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#ffffff"/>`, n, n)
	}

	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				fmt.Fprintf(&b, `<rect x="%d" y="%d" width="1" height="1" fill="%s"/>`, x, y, fg)
			}
		}
	}

	b.WriteString("</svg>")

	return []byte(b.String())
}
