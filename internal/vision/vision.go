// Package vision implements the image transform used on incoming webcam
// frames: grayscale conversion, automatic (Otsu) thresholding, external
// contour detection on the binary mask and the drawing primitives used to
// annotate frames.
package vision

import (
	"image"
	"image/color"
	"image/draw"
)

// Grayscale converts an image to 8-bit grayscale.
func Grayscale(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, src, bounds.Min, draw.Src)
	return gray
}

// CloneRGBA returns an RGBA copy of the image with the same dimensions.
func CloneRGBA(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}

// Histogram returns the 256-bin intensity histogram of a grayscale image.
func Histogram(gray *image.Gray) [256]int {
	var hist [256]int
	bounds := gray.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := gray.Pix[(y-bounds.Min.Y)*gray.Stride : (y-bounds.Min.Y)*gray.Stride+bounds.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	return hist
}

// OtsuThreshold picks the intensity threshold that minimizes intra-class
// variance over the histogram (equivalently, maximizes the between-class
// variance). Returns 0 for an empty histogram.
func OtsuThreshold(hist [256]int) int {
	total := 0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return 0
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var maxVariance float64
	threshold := 0
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])

		mB := sumB / wB
		mF := (sum - sumB) / wF
		variance := wB * wF * (mB - mF) * (mB - mF)
		if variance > maxVariance {
			maxVariance = variance
			threshold = t
		}
	}
	return threshold
}

// BinarizeInv produces an inverted binary mask: pixels at or below the
// threshold become foreground (255), brighter pixels become background (0).
// Objects are assumed darker than the background.
func BinarizeInv(gray *image.Gray, threshold int) *image.Gray {
	bounds := gray.Bounds()
	mask := image.NewGray(bounds)
	for y := 0; y < bounds.Dy(); y++ {
		src := gray.Pix[y*gray.Stride : y*gray.Stride+bounds.Dx()]
		dst := mask.Pix[y*mask.Stride : y*mask.Stride+bounds.Dx()]
		for x, v := range src {
			if int(v) <= threshold {
				dst[x] = 255
			}
		}
	}
	return mask
}

// FindExternalContours labels the 8-connected foreground regions of a binary
// mask and returns one axis-aligned bounding rectangle per region. Holes
// inside a region do not produce additional rectangles, so the result matches
// outermost contour detection.
func FindExternalContours(mask *image.Gray) []image.Rectangle {
	bounds := mask.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	visited := make([]bool, w*h)
	var rects []image.Rectangle
	var stack []image.Point

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if visited[idx] || mask.Pix[y*mask.Stride+x] == 0 {
				continue
			}

			// Flood fill one region, tracking its extent.
			minX, minY, maxX, maxY := x, y, x, y
			visited[idx] = true
			stack = append(stack[:0], image.Point{X: x, Y: y})
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if p.X < minX {
					minX = p.X
				}
				if p.X > maxX {
					maxX = p.X
				}
				if p.Y < minY {
					minY = p.Y
				}
				if p.Y > maxY {
					maxY = p.Y
				}

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						nidx := ny*w + nx
						if visited[nidx] || mask.Pix[ny*mask.Stride+nx] == 0 {
							continue
						}
						visited[nidx] = true
						stack = append(stack, image.Point{X: nx, Y: ny})
					}
				}
			}

			rects = append(rects, image.Rect(
				bounds.Min.X+minX,
				bounds.Min.Y+minY,
				bounds.Min.X+maxX+1,
				bounds.Min.Y+maxY+1,
			))
		}
	}
	return rects
}

// Annotation colors match the original overlay: red boxes, green count text.
var (
	BoxColor   = color.RGBA{255, 0, 0, 255}
	LabelColor = color.RGBA{0, 255, 0, 255}
)
