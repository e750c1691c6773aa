package packet

import (
	"encoding/binary"

	"golang.org/x/text/encoding/charmap"
)

// Writer builds a server message payload. All multi-byte writes are
// little-endian; framing is added by the session.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

func NewWriterWithOpcode(opcode byte) *Writer {
	w := &Writer{buf: make([]byte, 0, 64)}
	w.WriteC(opcode)
	return w
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteD writes 4 bytes little-endian.
func (w *Writer) WriteD(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteS writes a u16 length followed by the string in ISO-8859-1.
// Runes outside Latin-1 become '?'.
func (w *Writer) WriteS(s string) {
	encoded := encodeLatin1(s)
	w.WriteH(uint16(len(encoded)))
	w.buf = append(w.buf, encoded...)
}

// WritePos writes a map coordinate as u16 x, u16 y, u8 z.
func (w *Writer) WritePos(x, y int32, z int8) {
	w.WriteH(uint16(x))
	w.WriteH(uint16(y))
	w.WriteC(byte(z))
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the payload.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length.
func (w *Writer) Len() int {
	return len(w.buf)
}

func encodeLatin1(s string) []byte {
	if isASCII(s) {
		return []byte(s)
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.ISO8859_1.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
