package binary

// ToBCD packs a decimal value 0..99 into one BCD byte.
// Values above 99 are returned unchanged with ok set to false.
func ToBCD(v byte) (b byte, ok bool) {
	if v > 99 {
		return v, false
	}
	return (v/10)<<4 | v%10, true
}

// FromBCD unpacks a BCD byte into its decimal value.
// Bytes with a nibble above 9 are returned unchanged with ok set to false.
func FromBCD(b byte) (v byte, ok bool) {
	if !IsBCD(b) {
		return b, false
	}
	return (b>>4)*10 + b&0x0F, true
}

// IsBCD reports whether both nibbles of b are decimal digits.
func IsBCD(b byte) bool {
	return b>>4 <= 9 && b&0x0F <= 9
}

// MustBCD packs v without range reporting; callers guarantee v <= 99.
func MustBCD(v byte) byte {
	b, _ := ToBCD(v)
	return b
}
