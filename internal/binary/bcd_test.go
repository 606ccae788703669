package binary

import "testing"

func TestToBCD(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     byte
		want   byte
		wantOK bool
	}{
		{"zero", 0, 0x00, true},
		{"single digit", 7, 0x07, true},
		{"two digits", 42, 0x42, true},
		{"max", 99, 0x99, true},
		{"out of range", 100, 100, false},
		{"lead-out marker", 0xAA, 0xAA, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ToBCD(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ToBCD(%d) = 0x%02X, %v; want 0x%02X, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFromBCD(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     byte
		want   byte
		wantOK bool
	}{
		{"zero", 0x00, 0, true},
		{"two digits", 0x59, 59, true},
		{"max", 0x99, 99, true},
		{"high nibble invalid", 0xA0, 0xA0, false},
		{"low nibble invalid", 0x1F, 0x1F, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := FromBCD(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FromBCD(0x%02X) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestBCDRoundTrip(t *testing.T) {
	t.Parallel()

	for v := range byte(100) {
		b, ok := ToBCD(v)
		if !ok {
			t.Fatalf("ToBCD(%d) reported out of range", v)
		}
		back, ok := FromBCD(b)
		if !ok || back != v {
			t.Errorf("FromBCD(ToBCD(%d)) = %d, %v", v, back, ok)
		}
	}
}
