package strategy

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/kozaktomas/facial-recognition/internal/constants"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PixelSum derives a deterministic embedding from decoded pixel data, so the same
// image always yields the same embedding. It is selected by the "opencv" strategy name.
//
// Embedding layout (16 bytes, big-endian):
//
//	[0:8]  sum of the first channel of every pixel in BGR order (blue), each
//	       byte read as a signed int8
//	[8:16] width * height * 3
type PixelSum struct {
	maxPixels int
}

// NewPixelSum creates the pixel-sum strategy. maxPixels <= 0 uses DefaultMaxImagePixels.
func NewPixelSum(maxPixels int) *PixelSum {
	if maxPixels <= 0 {
		maxPixels = constants.DefaultMaxImagePixels
	}
	return &PixelSum{maxPixels: maxPixels}
}

// Name returns "opencv".
func (p *PixelSum) Name() string {
	return constants.StrategyOpenCV
}

// Extract decodes the image and computes its embedding. Any failure yields nil.
func (p *PixelSum) Extract(data []byte) (embedding []byte) {
	if len(data) == 0 {
		return nil
	}
	defer func() {
		if recover() != nil {
			embedding = nil
		}
	}()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil
	}
	if cfg.Width*cfg.Height > p.maxPixels {
		return nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil
	}

	return pixelSumEmbedding(blueSum(src), bounds.Dx()*bounds.Dy())
}

// Match reports exact byte equality of two embeddings.
func (p *PixelSum) Match(a, b []byte) bool {
	if !comparableEmbeddings(a, b) {
		return false
	}
	return bytes.Equal(a, b)
}

func pixelSumEmbedding(sum int64, pixels int) []byte {
	embedding := make([]byte, constants.PixelSumEmbeddingSize)
	binary.BigEndian.PutUint64(embedding[0:8], uint64(sum))
	binary.BigEndian.PutUint64(embedding[8:16], uint64(pixels*constants.ColorChannels))
	return embedding
}

// blueSum adds the 8-bit non-premultiplied blue value of every pixel, each read
// as a signed int8. Common decoder outputs are read in place; other color models
// go through color.NRGBAModel.
func blueSum(img image.Image) int64 {
	b := img.Bounds()
	var sum int64
	switch src := img.(type) {
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := src.PixOffset(b.Min.X, y)
			for x := b.Min.X; x < b.Max.X; x, i = x+1, i+4 {
				sum += int64(int8(src.Pix[i+2]))
			}
		}
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := src.PixOffset(b.Min.X, y)
			for x := b.Min.X; x < b.Max.X; x, i = x+1, i+1 {
				sum += int64(int8(src.Pix[i]))
			}
		}
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := src.PixOffset(b.Min.X, y)
			for x := b.Min.X; x < b.Max.X; x, i = x+1, i+4 {
				px := src.Pix[i : i+4 : i+4]
				if px[3] == 0xff {
					sum += int64(int8(px[2]))
					continue
				}
				c := color.NRGBAModel.Convert(color.RGBA{R: px[0], G: px[1], B: px[2], A: px[3]}).(color.NRGBA)
				sum += int64(int8(c.B))
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				sum += int64(int8(c.B))
			}
		}
	}
	return sum
}
