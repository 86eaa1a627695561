package classfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Provides utilities for reading class file data in big-endian format
type BinaryReader struct {
	reader    *bufio.Reader
	bytesRead int64
}

func NewBinaryReader(reader io.Reader) *BinaryReader {
	return &BinaryReader{
		reader: bufio.NewReader(reader),
	}
}

func (br *BinaryReader) BytesRead() int64 {
	return br.bytesRead
}

// Lengths above this are declared by the input and not trusted for allocation
const maxPrealloc = 64 << 10

// ReadNBytes reads exactly n bytes and tracks position. Large reads grow
// with the data actually present, so a bogus length fails at EOF without
// reserving n bytes first.
func (br *BinaryReader) ReadNBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	if n > maxPrealloc {
		var buf bytes.Buffer
		copied, err := io.CopyN(&buf, br.reader, int64(n))
		br.bytesRead += copied
		if err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	buf := make([]byte, n)
	bytesRead, err := io.ReadFull(br.reader, buf)
	if err != nil {
		return nil, err
	}
	br.bytesRead += int64(bytesRead)
	return buf, nil
}

// ReadU1 reads a single unsigned byte
func (br *BinaryReader) ReadU1() (uint8, error) {
	b, err := br.reader.ReadByte()
	if err != nil {
		return 0, err
	}
	br.bytesRead++
	return b, nil
}

// ReadU2 reads a 2-byte unsigned integer (big-endian)
func (br *BinaryReader) ReadU2() (uint16, error) {
	buf, err := br.ReadNBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ReadU4 reads a 4-byte unsigned integer (big-endian)
func (br *BinaryReader) ReadU4() (uint32, error) {
	buf, err := br.ReadNBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadU8 reads an 8-byte unsigned integer (big-endian)
func (br *BinaryReader) ReadU8() (uint64, error) {
	buf, err := br.ReadNBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// ReadU2Table reads a u2 count followed by that many u2 values
func (br *BinaryReader) ReadU2Table() ([]uint16, error) {
	count, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read table length: %w", err)
	}

	values := make([]uint16, count)
	for i := range values {
		if values[i], err = br.ReadU2(); err != nil {
			return nil, fmt.Errorf("failed to read table entry %d: %w", i, err)
		}
	}
	return values, nil
}

// AtEOF reports whether the underlying stream has no more bytes
func (br *BinaryReader) AtEOF() bool {
	_, err := br.reader.Peek(1)
	return err == io.EOF
}
