package decode

import (
	"image"
	"image/color"
)

// Channels is the number of interleaved samples per output pixel.
const Channels = 3

// ToRGB converts img into a freshly allocated, row-major, interleaved RGB
// buffer of length width*height*3. Alpha is dropped (non-premultiplied
// colour is kept); grayscale and paletted images are expanded.
func ToRGB(img image.Image) (pix []byte, width, height int) {
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	pix = make([]byte, width*height*Channels)
	if width == 0 || height == 0 {
		return pix, width, height
	}

	switch src := img.(type) {
	case *image.NRGBA:
		nrgbaToRGB(pix, src, b)
	case *image.RGBA:
		rgbaToRGB(pix, src, b)
	case *image.YCbCr:
		ycbcrToRGB(pix, src, b)
	case *image.Gray:
		grayToRGB(pix, src, b)
	case *image.Paletted:
		palettedToRGB(pix, src, b)
	default:
		genericToRGB(pix, img, b)
	}
	return pix, width, height
}

func nrgbaToRGB(dst []byte, src *image.NRGBA, b image.Rectangle) {
	o := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			s := row[x*4 : x*4+3 : x*4+3]
			dst[o], dst[o+1], dst[o+2] = s[0], s[1], s[2]
			o += Channels
		}
	}
}

func rgbaToRGB(dst []byte, src *image.RGBA, b image.Rectangle) {
	o := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			s := row[x*4 : x*4+4 : x*4+4]
			if s[3] == 0xff {
				dst[o], dst[o+1], dst[o+2] = s[0], s[1], s[2]
			} else {
				// RGBA is premultiplied.
				c := color.NRGBAModel.Convert(color.RGBA{R: s[0], G: s[1], B: s[2], A: s[3]}).(color.NRGBA)
				dst[o], dst[o+1], dst[o+2] = c.R, c.G, c.B
			}
			o += Channels
		}
	}
}

func ycbcrToRGB(dst []byte, src *image.YCbCr, b image.Rectangle) {
	o := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			yi := src.YOffset(x, y)
			ci := src.COffset(x, y)
			dst[o], dst[o+1], dst[o+2] = color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
			o += Channels
		}
	}
}

func grayToRGB(dst []byte, src *image.Gray, b image.Rectangle) {
	o := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			v := row[x]
			dst[o], dst[o+1], dst[o+2] = v, v, v
			o += Channels
		}
	}
}

func palettedToRGB(dst []byte, src *image.Paletted, b image.Rectangle) {
	lut := make([][Channels]byte, len(src.Palette))
	for i, c := range src.Palette {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		lut[i] = [Channels]byte{n.R, n.G, n.B}
	}
	o := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			idx := int(row[x])
			// Out-of-range indices render black, as image.Paletted.At does.
			if idx < len(lut) {
				rgb := lut[idx]
				dst[o], dst[o+1], dst[o+2] = rgb[0], rgb[1], rgb[2]
			}
			o += Channels
		}
	}
}

func genericToRGB(dst []byte, img image.Image, b image.Rectangle) {
	o := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst[o], dst[o+1], dst[o+2] = c.R, c.G, c.B
			o += Channels
		}
	}
}
