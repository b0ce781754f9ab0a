package grid

import (
	"errors"
	"testing"
)

func TestParseResolution(t *testing.T) {
	tests := []struct {
		input   string
		want    Resolution
		wantErr bool
	}{
		{"1920x1080", Resolution{1920, 1080}, false},
		{" 640x480 ", Resolution{640, 480}, false},
		{"1280X720", Resolution{1280, 720}, false},
		{"1280", Resolution{}, true},
		{"0x480", Resolution{}, true},
		{"640x-1", Resolution{}, true},
		{"axb", Resolution{}, true},
		{"", Resolution{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseResolution(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseResolution(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidResolution) {
				t.Errorf("ParseResolution(%q) error = %v, want ErrInvalidResolution", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseResolution(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolutionString(t *testing.T) {
	if got := (Resolution{720, 480}).String(); got != "720x480" {
		t.Errorf("String() = %q, want 720x480", got)
	}
}

func TestParseBitrate(t *testing.T) {
	tests := []struct {
		input   string
		want    Bitrate
		wantErr bool
	}{
		{"1000k", 1000, false},
		{"2000K", 2000, false},
		{"500", 500, false},
		{"0k", 0, true},
		{"-5k", 0, true},
		{"fast", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBitrate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBitrate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBitrate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBitrateRange(t *testing.T) {
	got, err := BitrateRange(1000, 20000, 1000)
	if err != nil {
		t.Fatalf("BitrateRange() error = %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("len = %d, want 20", len(got))
	}
	if got[0] != 1000 || got[19] != 20000 {
		t.Errorf("range = %v..%v, want 1000k..20000k", got[0], got[19])
	}
	if got[3].String() != "4000k" {
		t.Errorf("got[3] = %s, want 4000k", got[3])
	}

	if _, err := BitrateRange(2000, 1000, 1000); !errors.Is(err, ErrInvalidBitrate) {
		t.Errorf("inverted range error = %v, want ErrInvalidBitrate", err)
	}
	if _, err := BitrateRange(1000, 2000, 0); err == nil {
		t.Error("zero step should be rejected")
	}
}

func TestEnumerateOrder(t *testing.T) {
	res := []Resolution{{1920, 1080}, {1280, 720}}
	brs := []Bitrate{1000, 2000}

	cells := Enumerate(res, brs)
	want := []string{
		"1920x1080@1000k",
		"1280x720@1000k",
		"1920x1080@2000k",
		"1280x720@2000k",
	}
	if len(cells) != len(want) {
		t.Fatalf("len = %d, want %d", len(cells), len(want))
	}
	for i, c := range cells {
		if c.String() != want[i] {
			t.Errorf("cells[%d] = %s, want %s", i, c, want[i])
		}
	}
}

func TestEnumerateEmpty(t *testing.T) {
	if cells := Enumerate(nil, []Bitrate{1000}); len(cells) != 0 {
		t.Errorf("Enumerate(nil, ...) = %v, want empty", cells)
	}
}
