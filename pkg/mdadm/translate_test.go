package mdadm

import (
	"testing"

	"github.com/OffBroadway/mdadm/pkg/jbod"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		geo  jbod.Geometry
		addr uint32
		want Location
	}{
		{testGeometry, 0, Location{0, 0, 0}},
		{testGeometry, 200, Location{0, 0, 200}},
		{testGeometry, 256, Location{0, 1, 0}},
		{testGeometry, 511, Location{0, 1, 255}},
		{testGeometry, 512, Location{1, 0, 0}},
		{testGeometry, 2047, Location{3, 1, 255}},
		{jbod.DefaultGeometry, 65536*3 + 256*7 + 9, Location{3, 7, 9}},
		{jbod.DefaultGeometry, 16*65536 - 1, Location{15, 255, 255}},
	}

	for _, tt := range tests {
		if got := Translate(tt.geo, tt.addr); got != tt.want {
			t.Errorf("Translate(%d) = %+v, want %+v", tt.addr, got, tt.want)
		}
	}
}

func TestInBounds(t *testing.T) {
	g := jbod.Geometry{NumDisks: 16, DiskSize: 1 << 28, BlockSize: 1 << 20, MaxIOSize: 1024}

	tests := []struct {
		addr, length uint32
		want         bool
	}{
		{0, 0, true},
		{0xFFFFFFFF, 1, true},
		{0xFFFFFFFF, 2, false},
		{0xFFFFFF00, 0xFFFFFFFF, false},
	}

	for _, tt := range tests {
		if got := inBounds(g, tt.addr, tt.length); got != tt.want {
			t.Errorf("inBounds(%#x, %#x) = %v, want %v", tt.addr, tt.length, got, tt.want)
		}
	}
}
