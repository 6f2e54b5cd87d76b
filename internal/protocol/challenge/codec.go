package challenge

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// FieldWidth is the width of one padded decimal field.
	FieldWidth = 6

	// HeaderSize is the size of the operand header on issuer frames.
	HeaderSize = 2 * FieldWidth

	// Filler pads fields on the left. It is not a digit, so a padded field
	// never reads as a different number.
	Filler = '.'
)

// ErrMalformed is returned when a header or answer field cannot be decoded.
var ErrMalformed = errors.New("challenge: malformed field")

// New draws two operands from the system CSPRNG.
func New() (a, b uint16, err error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint16(buf[0:2]), binary.LittleEndian.Uint16(buf[2:4]), nil
}

// Answer is the expected reply to (a, b): their sum in decimal.
func Answer(a, b uint16) string {
	return strconv.Itoa(int(a) + int(b))
}

// EncodeHeader renders the two operands as a HeaderSize-byte header.
func EncodeHeader(a, b uint16) string {
	return pad(strconv.Itoa(int(a))) + pad(strconv.Itoa(int(b)))
}

// DecodeHeader splits an issuer frame into its operands and payload.
func DecodeHeader(msg string) (a, b uint16, payload string, err error) {
	if len(msg) < HeaderSize {
		return 0, 0, "", fmt.Errorf("%w: header too short (%d bytes)", ErrMalformed, len(msg))
	}
	if a, err = parseField(msg[:FieldWidth]); err != nil {
		return 0, 0, "", err
	}
	if b, err = parseField(msg[FieldWidth:HeaderSize]); err != nil {
		return 0, 0, "", err
	}
	return a, b, msg[HeaderSize:], nil
}

// EncodeAnswer pads answer to FieldWidth.
func EncodeAnswer(answer string) string { return pad(answer) }

// DecodeAnswer splits an answering frame into the claimed answer, with the
// filler removed, and the payload.
func DecodeAnswer(msg string) (answer, payload string, err error) {
	if len(msg) < FieldWidth {
		return "", "", fmt.Errorf("%w: answer too short (%d bytes)", ErrMalformed, len(msg))
	}
	return strings.TrimLeft(msg[:FieldWidth], string(Filler)), msg[FieldWidth:], nil
}

func pad(s string) string {
	if len(s) >= FieldWidth {
		return s
	}
	return strings.Repeat(string(Filler), FieldWidth-len(s)) + s
}

func parseField(f string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimLeft(f, string(Filler)), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, f)
	}
	return uint16(v), nil
}
