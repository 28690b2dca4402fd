// internal/protocol/frame.go
//
// Wire framing for the game protocol.
//
//	string frame:  int32 big-endian length N, then N bytes of UTF-8
//	int reply:     int32 big-endian
//
// Lengths above MaxFrame or below zero are protocol errors; the caller
// terminates the connection.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxFrame bounds the payload of a single string frame.
const MaxFrame = 64 << 10

var (
	ErrFrameTooLarge  = errors.New("protocol: frame too large")
	ErrNegativeLength = errors.New("protocol: negative frame length")
	ErrInvalidUTF8    = errors.New("protocol: frame is not valid UTF-8")
)

// ReadFrame reads one length-prefixed string.
func ReadFrame(r io.Reader) (string, error) {
	n, err := ReadInt(r)
	if err != nil {
		return "", err
	}
	switch {
	case n < 0:
		return "", ErrNegativeLength
	case n > MaxFrame:
		return "", fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	return string(buf), nil
}

// WriteFrame writes s as one length-prefixed frame in a single write.
func WriteFrame(w io.Writer, s string) error {
	if len(s) > MaxFrame {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(s))
	}
	buf := make([]byte, 4+len(s))
	binary.BigEndian.PutUint32(buf, uint32(len(s)))
	copy(buf[4:], s)
	_, err := w.Write(buf)
	return err
}

// ReadInt reads one big-endian int32.
func ReadInt(r io.Reader) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

// WriteInt writes one big-endian int32.
func WriteInt(w io.Writer, v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	_, err := w.Write(b[:])
	return err
}
