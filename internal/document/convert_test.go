package document

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIsHEIC(t *testing.T) {
	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
	heic = append(heic, make([]byte, 8)...)
	assert.True(t, isHEIC(heic))

	msf1 := append([]byte{0, 0, 0, 24}, []byte("ftypmsf1")...)
	msf1 = append(msf1, make([]byte, 8)...)
	assert.True(t, isHEIC(msf1))

	avif := append([]byte{0, 0, 0, 24}, []byte("ftypavif")...)
	avif = append(avif, make([]byte, 8)...)
	assert.False(t, isHEIC(avif))

	assert.False(t, isHEIC([]byte("ftypheic")))
	assert.False(t, isHEIC([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}))
}

func TestDecodeImageRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img, err := decodeImage(pngBytes(t, src))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := decodeImage([]byte("definitely not an image"))
	assert.Error(t, err)

	truncatedHeic := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
	_, err = decodeImage(append(truncatedHeic, make([]byte, 8)...))
	assert.Error(t, err)
}

func TestNormalizeForVisionFlattensAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 128})

	out := normalizeForVision(src, 2000)
	assert.Equal(t, 10, out.Bounds().Dx())
	assert.Equal(t, 10, out.Bounds().Dy())

	_, _, _, a := out.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), a)
}

func TestNormalizeForVisionCapsLongestSide(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	out := normalizeForVision(src, 20)
	assert.Equal(t, 20, out.Bounds().Dx())
	assert.Equal(t, 10, out.Bounds().Dy())

	small := normalizeForVision(image.NewNRGBA(image.Rect(0, 0, 8, 6)), 20)
	assert.Equal(t, 8, small.Bounds().Dx())
	assert.Equal(t, 6, small.Bounds().Dy())
}
