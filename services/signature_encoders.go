package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"

	"github.com/chai2010/webp"

	"signature-form-api/models"
)

const webpQuality = 90

type encodeFunc func(w io.Writer, img *image.NRGBA) error

// signatureEncoders maps each output format to its encoder. Every encoder
// receives the same non-premultiplied canvas so transparency survives.
var signatureEncoders = map[models.SignatureFormat]encodeFunc{
	models.FormatPNG:  encodePNG,
	models.FormatWebP: encodeWebP,
	models.FormatSVG:  encodeSVG,
}

// toCanvas copies img onto an NRGBA canvas anchored at the origin with
// draw.Src, so pixels are replaced rather than blended.
func toCanvas(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	canvas := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)
	return canvas
}

func encodePNG(w io.Writer, img *image.NRGBA) error {
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(w, img)
}

func encodeWebP(w io.Writer, img *image.NRGBA) error {
	return webp.Encode(w, img, &webp.Options{Quality: webpQuality, Exact: true})
}

// encodeSVG wraps the PNG rendition in an SVG document of the same pixel size.
func encodeSVG(w io.Writer, img *image.NRGBA) error {
	var buf bytes.Buffer
	if err := encodePNG(&buf, img); err != nil {
		return err
	}
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	_, err := fmt.Fprintf(w,
		`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+
			`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
			`<image width="%d" height="%d" href="data:image/png;base64,%s"/></svg>`+"\n",
		width, height, width, height, width, height,
		base64.StdEncoding.EncodeToString(buf.Bytes()),
	)
	return err
}
