// Package protocol is the binary framing used between the TCP server and
// client. A frame is an 8 byte header followed by a key and a value:
//
//	[magic 1B][op 1B][key len 2B][value len 4B][key][value]
//
// Requests carry the statement text in the value. Responses carry a JSON
// encoded result (RespOK) or an error category in the key and the message in
// the value (RespErr).
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	MagicNumber = 0x53

	OpQuery  = 0x01
	OpTables = 0x02
	OpPing   = 0x03

	RespOK  = 0x00
	RespErr = 0xFF

	MaxValueSize = 16 << 20
)

var (
	ErrInvalidMagic  = errors.New("invalid magic number")
	ErrFrameTooLarge = errors.New("frame too large")
)

type Packet struct {
	Op    byte
	Key   []byte
	Value []byte
}

func Encode(w io.Writer, op byte, key []byte, value []byte) error {
	if len(key) > 0xFFFF || len(value) > MaxValueSize {
		return fmt.Errorf("%w: key %d bytes, value %d bytes", ErrFrameTooLarge, len(key), len(value))
	}
	frame := make([]byte, 8, 8+len(key)+len(value))
	frame[0] = MagicNumber
	frame[1] = op
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(key)))
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(value)))
	frame = append(frame, key...)
	frame = append(frame, value...)

	_, err := w.Write(frame)
	return err
}

func Decode(r io.Reader) (*Packet, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	if header[0] != MagicNumber {
		return nil, ErrInvalidMagic
	}

	op := header[1]
	kLen := binary.BigEndian.Uint16(header[2:4])
	vLen := binary.BigEndian.Uint32(header[4:8])
	if vLen > MaxValueSize {
		return nil, fmt.Errorf("%w: value %d bytes", ErrFrameTooLarge, vLen)
	}

	key := make([]byte, kLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}

	val := make([]byte, vLen)
	if _, err := io.ReadFull(r, val); err != nil {
		return nil, err
	}

	return &Packet{Op: op, Key: key, Value: val}, nil
}
