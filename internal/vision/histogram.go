package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
)

const (
	histBins   = 64
	histWidth  = 280
	histHeight = 140
	// Quality is kept low on purpose, the histogram is a small diagnostic
	// image refreshed every few frames.
	histJPEGQuality = 70
)

// RenderHistogram draws a 64-bin intensity histogram of the grayscale frame
// with the current threshold marked as a dashed vertical line. The source is
// subsampled by a factor of 2 in each dimension before binning to keep the
// cost low. Returns the rendered image as JPEG bytes.
func RenderHistogram(gray *image.Gray, threshold int) ([]byte, error) {
	if gray == nil {
		return nil, fmt.Errorf("no grayscale frame available")
	}

	var bins [histBins]int
	maxBin := 0
	bounds := gray.Bounds()
	for y := 0; y < bounds.Dy(); y += 2 {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+bounds.Dx()]
		for x := 0; x < len(row); x += 2 {
			b := int(row[x]) * histBins / 256
			bins[b]++
			if bins[b] > maxBin {
				maxBin = bins[b]
			}
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, histWidth, histHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{255, 255, 255, 255}), image.Point{}, draw.Src)

	// Bars
	barColor := color.RGBA{128, 128, 128, 255}
	barWidth := histWidth / histBins
	plotHeight := histHeight - 20
	if maxBin > 0 {
		for b, count := range bins {
			barHeight := count * plotHeight / maxBin
			x0 := b * barWidth
			for x := x0; x < x0+barWidth-1; x++ {
				for y := histHeight - barHeight; y < histHeight; y++ {
					img.Set(x, y, barColor)
				}
			}
		}
	}

	// Threshold marker: dashed red vertical line at the threshold position.
	tx := threshold * histWidth / 256
	if tx >= histWidth {
		tx = histWidth - 1
	}
	lineColor := color.RGBA{255, 0, 0, 255}
	for y := 0; y < histHeight; y += 8 {
		for dy := 0; dy < 5 && y+dy < histHeight; dy++ {
			img.Set(tx, y+dy, lineColor)
			if tx+1 < histWidth {
				img.Set(tx+1, y+dy, lineColor)
			}
		}
	}
	DrawLabel(img, 6, 4, fmt.Sprintf("T: %d", threshold), lineColor)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: histJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode histogram: %w", err)
	}
	return buf.Bytes(), nil
}
