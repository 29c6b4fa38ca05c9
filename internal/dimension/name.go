package dimension

import (
	"bytes"
	"strings"
)

// MaxNameLen is the number of bytes read from the label. Dimension names fit
// in the inline buffer of a small string, so longer names never occur.
const MaxNameLen = 15

// Unnamed is used when the label holds no usable characters.
const Unnamed = "<unnamed>"

// DecodeName extracts the dimension name from the raw label bytes. It never
// fails: control bytes are dropped and invalid UTF-8 is replaced.
func DecodeName(raw []byte) string {
	if len(raw) > MaxNameLen {
		raw = raw[:MaxNameLen]
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	cleaned := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b < 0x20 || b == 0x7f {
			continue
		}
		cleaned = append(cleaned, b)
	}
	name := strings.ToValidUTF8(string(cleaned), "�")
	if name == "" {
		return Unnamed
	}
	return name
}
