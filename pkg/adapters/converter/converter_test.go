package converter

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/user/vidseq/pkg/raster"
)

func uniformYCbCr(w, h int, y, cb, cr uint8) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	for i := range img.Y {
		img.Y[i] = y
	}
	for i := range img.Cb {
		img.Cb[i] = cb
		img.Cr[i] = cr
	}
	return img
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(0, 10, raster.FormatYUV420P, 10, 10, raster.FormatRGB24); err == nil {
		t.Error("expected error for zero source width")
	}
	if _, err := New(10, 10, raster.FormatYUV420P, 10, 10, raster.FormatYUV420P); !errors.Is(err, raster.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for yuv destination, got %v", err)
	}
	if _, err := New(10, 10, raster.FormatUnknown, 10, 10, raster.FormatRGB24); !errors.Is(err, raster.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for unknown source, got %v", err)
	}
}

func TestConvert_SameSize(t *testing.T) {
	src := uniformYCbCr(6, 4, 128, 128, 128)
	wantR, wantG, wantB := color.YCbCrToRGB(128, 128, 128)

	for _, f := range []raster.PixelFormat{raster.FormatRGB24, raster.FormatBGR24, raster.FormatRGBA32, raster.FormatPlanarRGB24} {
		c, err := New(6, 4, raster.FormatYUV420P, 6, 4, f)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", f, err)
		}
		if c.Scales() {
			t.Errorf("%s: same-size context should not scale", f)
		}
		dst, _ := raster.New(f, 6, 4)
		if err := c.Convert(dst, src); err != nil {
			t.Fatalf("Convert(%s) failed: %v", f, err)
		}
		got := dst.At(5, 3).(color.RGBA)
		if got.R != wantR || got.G != wantG || got.B != wantB {
			t.Errorf("%s: pixel = %v, want %d,%d,%d", f, got, wantR, wantG, wantB)
		}
	}
}

func TestConvert_GrayTakesLuma(t *testing.T) {
	src := uniformYCbCr(4, 4, 77, 10, 240)
	c, err := New(4, 4, raster.FormatYUV420P, 4, 4, raster.FormatGray8)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	dst, _ := raster.New(raster.FormatGray8, 4, 4)
	if err := c.Convert(dst, src); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	for i, v := range dst.Pix {
		if v != 77 {
			t.Fatalf("Pix[%d] = %d, want 77", i, v)
		}
	}
}

func TestConvert_Scaled(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 200, 100, 50, 255
	}

	c, err := New(16, 8, raster.FormatRGBA32, 5, 3, raster.FormatRGB24)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !c.Scales() {
		t.Fatal("expected scaling context")
	}

	buf := make([]byte, raster.FrameSize(raster.FormatRGB24, 5, 3, 0))
	dst, _ := raster.Wrap(buf, raster.FormatRGB24, 5, 3, 0)
	if err := c.Convert(dst, src); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	want := []byte{200, 100, 50}
	for i, v := range buf {
		if d := int(v) - int(want[i%3]); d < -1 || d > 1 {
			t.Fatalf("byte %d = %d, want %d", i, v, want[i%3])
		}
	}
}

func TestConvert_RowStride(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(src.Pix, []byte{1, 2, 3, 4})

	c, err := New(2, 2, raster.FormatGray8, 2, 2, raster.FormatRGB24)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	buf := make([]byte, raster.FrameSize(raster.FormatRGB24, 2, 2, 8))
	dst, err := raster.Wrap(buf, raster.FormatRGB24, 2, 2, 8)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	if err := c.Convert(dst, src); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	want := []byte{1, 1, 1, 2, 2, 2, 0, 0, 3, 3, 3, 4, 4, 4, 0, 0}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %v, want %v", buf, want)
		}
	}
}

func TestConvert_GeometryMismatch(t *testing.T) {
	c, _ := New(4, 4, raster.FormatYUV420P, 4, 4, raster.FormatRGB24)
	dst, _ := raster.New(raster.FormatRGB24, 2, 2)
	if err := c.Convert(dst, uniformYCbCr(4, 4, 0, 128, 128)); err == nil {
		t.Error("expected error for wrong destination size")
	}
	dst, _ = raster.New(raster.FormatRGB24, 4, 4)
	if err := c.Convert(dst, uniformYCbCr(8, 8, 0, 128, 128)); err == nil {
		t.Error("expected error for wrong source size")
	}
}
