package editor

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	boxColor   = color.NRGBA{255, 0, 0, 255}
	liveColor  = color.NRGBA{255, 204, 0, 255}
	labelColor = color.NRGBA{0, 80, 255, 255}
)

const stroke = 2

// Render draws the committed boxes, their label names and the live
// rectangle (while a drag is in progress) onto a copy of the current
// image. The frontend writes this out as the preview after every
// mutation.
func (s *Session) Render() image.Image {
	if s.img == nil {
		return nil
	}
	dst := imaging.Clone(s.img)

	for _, b := range s.boxes {
		drawRect(dst, b.X0, b.Y0, b.X1, b.Y1, boxColor)
		if b.Tagged() {
			drawText(dst, b.X0+3, b.Y0+13, s.cfg.Name(b.Label))
		}
	}
	if s.drawing {
		r := image.Rect(s.anchor.X, s.anchor.Y, s.cursor.X, s.cursor.Y).Canon()
		drawRect(dst, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, liveColor)
	}
	return dst
}

func drawRect(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawText(img *image.NRGBA, x, y int, text string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
