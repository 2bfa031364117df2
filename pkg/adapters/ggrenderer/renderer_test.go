package ggrenderer

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/user/vidseq/pkg/ports"
)

func TestRenderer_CreateCanvas(t *testing.T) {
	r := New()

	canvas := r.CreateCanvas(100, 80, color.White)
	img := canvas.ToImage()
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 80 {
		t.Errorf("expected 100x80, got %dx%d", b.Dx(), b.Dy())
	}

	rr, g, b, _ := img.At(50, 40).RGBA()
	if rr>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("expected white background, got %d,%d,%d", rr>>8, g>>8, b>>8)
	}
}

func TestRenderer_EncodeJPEG(t *testing.T) {
	r := New()

	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 255, 255
	}

	data, err := r.EncodeImage(img, ports.FormatJPEG, 80)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("jpeg.Decode failed: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 50 || b.Dy() != 50 {
		t.Errorf("expected 50x50, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderer_EncodePNG(t *testing.T) {
	r := New()

	data, err := r.EncodeImage(image.NewRGBA(image.Rect(0, 0, 30, 20)), ports.FormatPNG, 0)
	if err != nil {
		t.Fatalf("EncodeImage failed: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 30 || b.Dy() != 20 {
		t.Errorf("expected 30x20, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderer_EncodeUnsupported(t *testing.T) {
	r := New()
	if _, err := r.EncodeImage(image.NewRGBA(image.Rect(0, 0, 1, 1)), ports.ImageFormat(99), 0); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestRenderer_ResizeImage(t *testing.T) {
	r := New()

	resized := r.ResizeImage(image.NewRGBA(image.Rect(0, 0, 100, 100)), 50, 25)
	if b := resized.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("expected 50x25, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestCanvas_DrawRect(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(20, 20, color.Black)

	canvas.DrawRect(5, 5, 10, 10, color.RGBA{R: 255, A: 255})
	img := canvas.ToImage()

	if rr, _, _, _ := img.At(10, 10).RGBA(); rr>>8 != 255 {
		t.Errorf("expected red inside the rectangle, got r=%d", rr>>8)
	}
	if rr, _, _, _ := img.At(1, 1).RGBA(); rr>>8 != 0 {
		t.Errorf("expected black outside the rectangle, got r=%d", rr>>8)
	}
}

func TestCanvas_DrawRectStroke(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(20, 20, color.Black)

	canvas.DrawRectStroke(0, 0, 20, 20, color.RGBA{G: 255, A: 255}, 2)
	img := canvas.ToImage()

	if _, g, _, _ := img.At(0, 10).RGBA(); g>>8 < 200 {
		t.Errorf("expected the stroke on the left edge, got g=%d", g>>8)
	}
	if _, g, _, _ := img.At(10, 10).RGBA(); g>>8 != 0 {
		t.Errorf("expected the centre untouched, got g=%d", g>>8)
	}
}

func TestCanvas_DrawImageAndText(t *testing.T) {
	r := New()
	canvas := r.CreateCanvas(60, 20, color.Black)

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+2], src.Pix[i+3] = 255, 255
	}
	canvas.DrawImage(src, 50, 2)
	canvas.DrawText("12", 2, 10, color.White)

	img := canvas.ToImage()
	if _, _, b, _ := img.At(51, 3).RGBA(); b>>8 != 255 {
		t.Errorf("expected blue pixel from drawn image, got b=%d", b>>8)
	}

	lit := false
	for y := 0; y < 20 && !lit; y++ {
		for x := 0; x < 40; x++ {
			if rr, _, _, _ := img.At(x, y).RGBA(); rr>>8 > 128 {
				lit = true
				break
			}
		}
	}
	if !lit {
		t.Error("expected text pixels on the canvas")
	}
}
