package geometry

import (
	"math"
	"testing"
)

func TestNewMapperRejectsEmptySizes(t *testing.T) {
	tests := []struct {
		name    string
		display Size
		native  Size
	}{
		{name: "zero display", display: Size{0, 100}, native: Size{100, 100}},
		{name: "zero native", display: Size{100, 100}, native: Size{100, 0}},
		{name: "negative native", display: Size{100, 100}, native: Size{-1, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMapper(Letterbox, tt.display, tt.native); err == nil {
				t.Errorf("Expected error for display=%v native=%v", tt.display, tt.native)
			}
		})
	}
}

func TestLetterboxGeometry(t *testing.T) {
	// 200x100 image on a 300x300 surface: scale 1.5, image 300x150 centered vertically.
	m, err := NewMapper(Letterbox, Size{300, 300}, Size{200, 100})
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	r := m.ImageRect()
	if r.X != 0 || r.Y != 75 || r.W != 300 || r.H != 150 {
		t.Errorf("Expected image rect (0,75,300,150), got %+v", r)
	}
	p := m.Forward(Point{100, 50})
	if p.X != 150 || p.Y != 150 {
		t.Errorf("Expected center to map to (150,150), got %+v", p)
	}
	n := m.Inverse(Point{0, 75})
	if n.X != 0 || n.Y != 0 {
		t.Errorf("Expected top-left of letterboxed image to invert to origin, got %+v", n)
	}
}

func TestStretchGeometry(t *testing.T) {
	m, err := NewMapper(Stretch, Size{100, 400}, Size{200, 200})
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	sx, sy := m.Scale()
	if sx != 0.5 || sy != 2 {
		t.Errorf("Expected scale (0.5,2), got (%v,%v)", sx, sy)
	}
	p := m.Inverse(Point{50, 100})
	if p.X != 100 || p.Y != 50 {
		t.Errorf("Expected (100,50), got %+v", p)
	}
}

func TestRoundTripWithinOnePixel(t *testing.T) {
	natives := []Size{{224, 224}, {640, 480}, {37, 913}, {1920, 1080}}
	displays := []Size{{672, 672}, {448, 300}, {100, 900}, {333, 211}}

	for _, policy := range []Policy{Letterbox, Stretch} {
		for _, native := range natives {
			for _, display := range displays {
				m, err := NewMapper(policy, display, native)
				if err != nil {
					t.Fatalf("NewMapper: %v", err)
				}
				stepX := math.Max(1, math.Floor(native.W/17))
				stepY := math.Max(1, math.Floor(native.H/13))
				for x := 0.0; x < native.W; x += stepX {
					for y := 0.0; y < native.H; y += stepY {
						// Display coordinates arrive as whole pixels from pointer events.
						d := m.Forward(Point{x, y})
						d = Point{math.Round(d.X), math.Round(d.Y)}
						back := m.Inverse(d)
						if math.Abs(math.Round(back.X)-x) > 1 || math.Abs(math.Round(back.Y)-y) > 1 {
							// Downscaled surfaces lose precision per display pixel;
							// allow one display pixel worth of native error.
							tolX := math.Max(1, native.W/m.ImageRect().W)
							tolY := math.Max(1, native.H/m.ImageRect().H)
							if math.Abs(back.X-x) > tolX || math.Abs(back.Y-y) > tolY {
								t.Fatalf("%v %v on %v: (%v,%v) -> %+v -> %+v", policy, native, display, x, y, d, back)
							}
						}
					}
				}
			}
		}
	}
}

func TestExactRoundTrip(t *testing.T) {
	for _, policy := range []Policy{Letterbox, Stretch} {
		m, err := NewMapper(policy, Size{500, 321}, Size{640, 480})
		if err != nil {
			t.Fatalf("NewMapper: %v", err)
		}
		for _, p := range []Point{{0, 0}, {639, 479}, {123.5, 77.25}} {
			back := m.Inverse(m.Forward(p))
			if math.Abs(back.X-p.X) > 1e-9 || math.Abs(back.Y-p.Y) > 1e-9 {
				t.Errorf("%v: expected %+v, got %+v", policy, p, back)
			}
		}
	}
}

func TestClampNative(t *testing.T) {
	m, _ := NewMapper(Stretch, Size{100, 100}, Size{50, 40})
	p := m.ClampNative(Point{-3, 99})
	if p.X != 0 || p.Y != 40 {
		t.Errorf("Expected (0,40), got %+v", p)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"letterbox", Letterbox, false},
		{"STRETCH", Stretch, false},
		{"", Letterbox, false},
		{"zoom", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || (!tt.wantErr && got != tt.want) {
			t.Errorf("ParsePolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}
