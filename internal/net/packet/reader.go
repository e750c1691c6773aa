package packet

import (
	"encoding/binary"
	"errors"

	"golang.org/x/text/encoding/charmap"
)

// ErrShortPacket is recorded when a read runs past the end of the payload.
var ErrShortPacket = errors.New("packet: read past end")

// Reader reads fields from a client message payload.
// Byte 0 is always the opcode.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1} // skip opcode byte
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// Err returns ErrShortPacket if any read ran out of data.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) short() {
	r.err = ErrShortPacket
	r.off = len(r.data)
}

// ReadC reads 1 unsigned byte.
func (r *Reader) ReadC() byte {
	if r.off >= len(r.data) {
		r.short()
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if r.off+2 > len(r.data) {
		r.short()
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadD reads 4 bytes as little-endian uint32.
func (r *Reader) ReadD() uint32 {
	if r.off+4 > len(r.data) {
		r.short()
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

// ReadS reads a u16-length ISO-8859-1 string and returns UTF-8.
func (r *Reader) ReadS() string {
	n := int(r.ReadH())
	if r.err != nil {
		return ""
	}
	if r.off+n > len(r.data) {
		r.short()
		return ""
	}
	raw := r.data[r.off : r.off+n]
	r.off += n
	return latin1ToUTF8(raw)
}

// latin1ToUTF8 converts ISO-8859-1 bytes to a UTF-8 string.
// Pure ASCII passes through unchanged.
func latin1ToUTF8(raw []byte) string {
	allASCII := true
	for _, b := range raw {
		if b >= 0x80 {
			allASCII = false
			break
		}
	}
	if allASCII {
		return string(raw)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}
