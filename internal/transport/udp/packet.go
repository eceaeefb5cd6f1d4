// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
Packet layout, big endian:

	|<- 4 ->|<--- 8 --->|<- 2 ->|<- 4 ->|<---- N * 4 ---->|
	+-------+-----------+-------+-------+-----------------+
	|  seq  | timestamp | count |elapsed|     values      |
	|uint32 |   int64   |uint16 |float32|  N * float32    |
	+-------+-----------+-------+-------+-----------------+

timestamp is nanoseconds since the Unix epoch, elapsed is milliseconds.
*/
const HeaderSize = 4 + 8 + 2 + 4

// MaxValues is the largest value count a packet header can carry.
const MaxValues = math.MaxUint16

var ErrShortPacket = errors.New("udp: packet shorter than its header declares")

// Packet is the decoded form of one datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	ElapsedMs float32
	Values    []float32
}

// writePacket encodes p into buf, which is reset first.
func writePacket(buf *bytes.Buffer, p Packet) error {
	if len(p.Values) > MaxValues {
		return fmt.Errorf("udp: %d values exceed packet limit %d", len(p.Values), MaxValues)
	}
	buf.Reset()
	buf.Grow(HeaderSize + 4*len(p.Values))

	err := binary.Write(buf, binary.BigEndian, p.Sequence)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, p.Timestamp)
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(p.Values)))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, p.ElapsedMs)
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, p.Values)
	}
	return err
}

// DecodePacket parses a datagram produced by Publisher.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	p := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
		ElapsedMs: math.Float32frombits(binary.BigEndian.Uint32(b[14:18])),
	}
	n := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) < HeaderSize+4*n {
		return Packet{}, fmt.Errorf("%w: %d values in %d bytes", ErrShortPacket, n, len(b))
	}
	p.Values = make([]float32, n)
	for i := range p.Values {
		off := HeaderSize + 4*i
		p.Values[i] = math.Float32frombits(binary.BigEndian.Uint32(b[off : off+4]))
	}
	return p, nil
}
