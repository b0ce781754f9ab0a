package metric

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/five82/rdsweep/internal/errors"
	"github.com/five82/rdsweep/internal/frame"
)

func randomFrame(r *rand.Rand, w, h, ch int) *frame.Frame {
	f := frame.New(w, h, ch)
	for i := range f.Pix {
		f.Pix[i] = byte(r.IntN(256))
	}
	return f
}

func TestPSNRIdenticalIsInf(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	f := randomFrame(r, 32, 24, frame.RGB)
	g := &frame.Frame{Width: f.Width, Height: f.Height, Channels: f.Channels, Pix: append([]byte(nil), f.Pix...)}

	got, err := PSNR{}.Score(f, g)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if !math.IsInf(got, 1) {
		t.Errorf("Score() = %v, want +Inf", got)
	}
}

func TestPSNRKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b *frame.Frame
		want float64
	}{
		{
			name: "off by one everywhere",
			a:    frame.Solid(8, 8, 10, 10, 10),
			b:    frame.Solid(8, 8, 11, 11, 11),
			want: 10 * math.Log10(255*255),
		},
		{
			name: "black vs white",
			a:    frame.Solid(8, 8, 0, 0, 0),
			b:    frame.Solid(8, 8, 255, 255, 255),
			want: 0,
		},
		{
			name: "one channel off by three",
			a:    frame.Solid(8, 8, 100, 100, 100),
			b:    frame.Solid(8, 8, 103, 100, 100),
			want: 10 * math.Log10(255*255/3.0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PSNR{}.Score(tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSSIMIdenticalIsOne(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	f := randomFrame(r, 40, 30, frame.RGB)

	got, err := SSIM{}.Score(f, f)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("Score() = %v, want 1", got)
	}
}

func TestSSIMRange(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 20; i++ {
		w := 7 + r.IntN(30)
		h := 7 + r.IntN(30)
		a := randomFrame(r, w, h, frame.RGB)
		b := randomFrame(r, w, h, frame.RGB)

		got, err := SSIM{}.Score(a, b)
		if err != nil {
			t.Fatalf("Score(%dx%d) error = %v", w, h, err)
		}
		if got < -1 || got > 1 || math.IsNaN(got) {
			t.Errorf("Score(%dx%d) = %v, outside [-1, 1]", w, h, got)
		}
	}

	// Inverted content pushes the score towards the negative end.
	a := randomFrame(r, 16, 16, frame.Gray)
	b := frame.New(16, 16, frame.Gray)
	for i, v := range a.Pix {
		b.Pix[i] = 255 - v
	}
	got, err := SSIM{}.Score(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got >= 0 || got < -1 {
		t.Errorf("inverted Score() = %v, want in [-1, 0)", got)
	}
}

// bruteSSIM recomputes the interior-window mean directly.
func bruteSSIM(x, y []byte, w, h int) float64 {
	const np = SSIMWindow * SSIMWindow
	var total float64
	n := 0
	for r := 0; r+SSIMWindow <= h; r++ {
		for c := 0; c+SSIMWindow <= w; c++ {
			var sx, sy float64
			for i := 0; i < SSIMWindow; i++ {
				for j := 0; j < SSIMWindow; j++ {
					sx += float64(x[(r+i)*w+c+j])
					sy += float64(y[(r+i)*w+c+j])
				}
			}
			ux, uy := sx/np, sy/np
			var vx, vy, vxy float64
			for i := 0; i < SSIMWindow; i++ {
				for j := 0; j < SSIMWindow; j++ {
					dx := float64(x[(r+i)*w+c+j]) - ux
					dy := float64(y[(r+i)*w+c+j]) - uy
					vx += dx * dx
					vy += dy * dy
					vxy += dx * dy
				}
			}
			vx /= np - 1
			vy /= np - 1
			vxy /= np - 1
			total += ((2*ux*uy + ssimC1) * (2*vxy + ssimC2)) /
				((ux*ux + uy*uy + ssimC1) * (vx + vy + ssimC2))
			n++
		}
	}
	return total / float64(n)
}

func TestSSIMMatchesDirectComputation(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	a := randomFrame(r, 23, 17, frame.Gray)
	b := frame.New(23, 17, frame.Gray)
	for i, v := range a.Pix {
		// Mild noise so the score stays in a realistic range.
		n := int(v) + r.IntN(21) - 10
		b.Pix[i] = byte(min(max(n, 0), 255))
	}

	got, err := SSIM{}.Score(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := bruteSSIM(a.Pix, b.Pix, 23, 17)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Score() = %v, direct computation = %v", got, want)
	}
}

func TestSSIMIgnoresChroma(t *testing.T) {
	// Pure red and a grey of equal luma differ in colour only.
	red := frame.Solid(16, 16, 255, 0, 0)
	grey := frame.Solid(16, 16, 76, 76, 76)

	ssim, err := SSIM{}.Score(red, grey)
	if err != nil {
		t.Fatal(err)
	}
	if ssim != 1 {
		t.Errorf("SSIM = %v, want 1 for equal-luma frames", ssim)
	}

	psnr, err := PSNR{}.Score(red, grey)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsInf(psnr, 1) {
		t.Error("PSNR should see the colour difference")
	}
}

func TestSSIMFrameTooSmall(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		wantErr bool
	}{
		{"6x6", 6, 6, true},
		{"6x100", 6, 100, true},
		{"100x6", 100, 6, true},
		{"7x7", 7, 7, false},
		{"8x7", 8, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := frame.Solid(tt.w, tt.h, 9, 9, 9)
			_, err := SSIM{}.Score(f, f)
			if tt.wantErr {
				if !errors.IsKind(err, errors.KindFrameTooSmall) {
					t.Errorf("error = %v, want Frame too small", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error = %v", err)
			}
		})
	}
}

func TestScorersRejectMismatchedSizes(t *testing.T) {
	a := frame.Solid(16, 16, 0, 0, 0)
	b := frame.Solid(8, 8, 0, 0, 0)
	for _, s := range []Scorer{PSNR{}, SSIM{}} {
		if _, err := s.Score(a, b); !errors.IsKind(err, errors.KindDimension) {
			t.Errorf("%s: error = %v, want Dimension error", s.Name(), err)
		}
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"psnr", "SSIM"} {
		s, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q) error = %v", name, err)
		}
		if s.Name() == "" {
			t.Errorf("ByName(%q) returned unnamed scorer", name)
		}
	}
	if _, err := ByName("vmaf"); err == nil {
		t.Error("ByName(vmaf) should fail")
	}

	list, err := ByNames([]string{"ssim", "psnr"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name() != "ssim" || list[1].Name() != "psnr" {
		t.Errorf("ByNames() order = %v", list)
	}
}
