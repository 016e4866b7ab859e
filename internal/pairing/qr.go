package pairing

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// RenderQR encodes a pairing code's URL as a QR code and returns it as PNG
// bytes, for a headless/TUI front-end to display to a user pairing a
// second device.
func RenderQR(c Code, size int) ([]byte, error) {
	writer := qrcode.NewQRCodeWriter()
	matrix, err := writer.Encode(c.URL, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		return nil, err
	}

	img := bitMatrixToImage(matrix)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func bitMatrixToImage(m *gozxing.BitMatrix) image.Image {
	w, h := m.GetWidth(), m.GetHeight()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}
