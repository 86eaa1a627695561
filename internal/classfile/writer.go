package classfile

import (
	"bytes"
	"encoding/binary"
)

// BinaryWriter is the big-endian counterpart of BinaryReader
type BinaryWriter struct {
	buf bytes.Buffer
}

func NewBinaryWriter() *BinaryWriter {
	return &BinaryWriter{}
}

func (bw *BinaryWriter) WriteU1(v uint8) {
	bw.buf.WriteByte(v)
}

func (bw *BinaryWriter) WriteU2(v uint16) {
	bw.buf.Write(binary.BigEndian.AppendUint16(nil, v))
}

func (bw *BinaryWriter) WriteU4(v uint32) {
	bw.buf.Write(binary.BigEndian.AppendUint32(nil, v))
}

func (bw *BinaryWriter) WriteU8(v uint64) {
	bw.buf.Write(binary.BigEndian.AppendUint64(nil, v))
}

func (bw *BinaryWriter) WriteBytes(b []byte) {
	bw.buf.Write(b)
}

func (bw *BinaryWriter) Len() int {
	return bw.buf.Len()
}

func (bw *BinaryWriter) Bytes() []byte {
	return bw.buf.Bytes()
}
