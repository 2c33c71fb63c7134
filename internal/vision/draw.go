package vision

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DrawBox draws a rectangle outline on the image.
func DrawBox(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	bounds := img.Bounds()
	x, y := r.Min.X, r.Min.Y
	w, h := r.Dx(), r.Dy()

	for t := 0; t < thickness; t++ {
		// Top and bottom edges
		for i := x; i < x+w && i < bounds.Max.X; i++ {
			if i < 0 {
				continue
			}
			if y+t >= 0 && y+t < bounds.Max.Y {
				img.Set(i, y+t, c)
			}
			if y+h-1-t >= 0 && y+h-1-t < bounds.Max.Y {
				img.Set(i, y+h-1-t, c)
			}
		}
		// Left and right edges
		for j := y; j < y+h && j < bounds.Max.Y; j++ {
			if j < 0 {
				continue
			}
			if x+t >= 0 && x+t < bounds.Max.X {
				img.Set(x+t, j, c)
			}
			if x+w-1-t >= 0 && x+w-1-t < bounds.Max.X {
				img.Set(x+w-1-t, j, c)
			}
		}
	}
}

// DrawLabel draws text on the image with a dark background strip so it stays
// readable on busy frames.
func DrawLabel(img *image.RGBA, x, y int, label string, c color.RGBA) {
	if y < 10 {
		y = 10
	}
	if x < 0 {
		x = 0
	}

	bgColor := color.RGBA{0, 0, 0, 180}
	textWidth := len(label) * 7
	for dy := -2; dy < 12; dy++ {
		for dx := -2; dx < textWidth+2; dx++ {
			px, py := x+dx, y+dy
			if px >= 0 && px < img.Bounds().Max.X && py >= 0 && py < img.Bounds().Max.Y {
				img.Set(px, py, bgColor)
			}
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + 10)},
	}
	d.DrawString(label)
}
