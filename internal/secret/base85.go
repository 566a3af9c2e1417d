package secret

import (
	"encoding/binary"
	"fmt"
)

// The RFC 1924 alphabet. encoding/ascii85 uses the Adobe alphabet, which
// produces different text for the same bytes.
const base85Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz!#$%&()*+-;<=>?@^_`{|}~"

var base85Index = func() [256]int16 {
	var idx [256]int16
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(base85Alphabet); i++ {
		idx[base85Alphabet[i]] = int16(i)
	}
	return idx
}()

// encodeBase85 encodes src in 4-byte groups, zero padding the last one and
// keeping the padding in the output.
func encodeBase85(src []byte) string {
	padded := make([]byte, (len(src)+3)/4*4)
	copy(padded, src)

	out := make([]byte, 0, len(padded)/4*5)
	var chunk [5]byte
	for i := 0; i < len(padded); i += 4 {
		v := binary.BigEndian.Uint32(padded[i:])
		for j := 4; j >= 0; j-- {
			chunk[j] = base85Alphabet[v%85]
			v /= 85
		}
		out = append(out, chunk[:]...)
	}
	return string(out)
}

// decodeBase85 reverses encodeBase85. A trailing partial group is padded
// with the highest digit and the extra bytes dropped.
func decodeBase85(src string) ([]byte, error) {
	pad := (5 - len(src)%5) % 5
	buf := []byte(src)
	for i := 0; i < pad; i++ {
		buf = append(buf, base85Alphabet[84])
	}

	out := make([]byte, 0, len(buf)/5*4)
	var word [4]byte
	for i := 0; i < len(buf); i += 5 {
		var v uint64
		for j := 0; j < 5; j++ {
			d := base85Index[buf[i+j]]
			if d < 0 {
				return nil, fmt.Errorf("invalid base85 character %q at %d", buf[i+j], i+j)
			}
			v = v*85 + uint64(d)
		}
		if v > 0xFFFFFFFF {
			return nil, fmt.Errorf("base85 group at %d overflows", i)
		}
		binary.BigEndian.PutUint32(word[:], uint32(v))
		out = append(out, word[:]...)
	}
	return out[:len(out)-pad], nil
}
