package device

import (
	"encoding/binary"

	"github.com/tphakala/go-audioclient/internal/engine"
)

// DecodePCM decodes little-endian integer samples into dst
func DecodePCM(bits uint16, data []byte, dst []int) []int {
	dst = dst[:0]
	switch bits {
	case 16:
		for i := 0; i+2 <= len(data); i += 2 {
			dst = append(dst, int(int16(binary.LittleEndian.Uint16(data[i:]))))
		}
	case 32:
		for i := 0; i+4 <= len(data); i += 4 {
			dst = append(dst, int(int32(binary.LittleEndian.Uint32(data[i:]))))
		}
	}
	return dst
}

// EncodePCM encodes samples as little-endian integers and returns the
// number of bytes written
func EncodePCM(bits uint16, src []int, data []byte) int {
	n := 0
	switch bits {
	case 16:
		for _, v := range src {
			if n+2 > len(data) {
				break
			}
			binary.LittleEndian.PutUint16(data[n:], uint16(int16(v)))
			n += 2
		}
	case 32:
		for _, v := range src {
			if n+4 > len(data) {
				break
			}
			binary.LittleEndian.PutUint32(data[n:], uint32(int32(v)))
			n += 4
		}
	}
	return n
}

func isIntegerPCM(f engine.Format) bool {
	return f.Tag == engine.FormatPCM && (f.BitsPerSample == 16 || f.BitsPerSample == 32)
}
