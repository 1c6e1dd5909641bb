package tuya

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Command is a Tuya frame command code.
type Command uint32

const (
	// CommandControl sets data points.
	CommandControl Command = 7
	// CommandStatus is an unsolicited status push from the device.
	CommandStatus Command = 8
	// CommandHeartbeat keeps an idle session open.
	CommandHeartbeat Command = 9
	// CommandQuery reads all data points.
	CommandQuery Command = 10
)

const (
	framePrefix uint32 = 0x000055AA
	frameSuffix uint32 = 0x0000AA55

	// headerLen is prefix + seq + cmd + length.
	headerLen = 16
	// trailerLen is crc + suffix.
	trailerLen = 8
	// maxFrameLen caps the declared length of an incoming frame.
	maxFrameLen = 64 * 1024

	// versionHeader prefixes encrypted CONTROL payloads in protocol 3.3.
	versionHeader = "3.3\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"
)

var (
	errBadPrefix   = errors.New("bad frame prefix")
	errBadSuffix   = errors.New("bad frame suffix")
	errBadChecksum = errors.New("frame checksum mismatch")
	errFrameLength = errors.New("invalid frame length")
)

// Frame is one decoded protocol message.
type Frame struct {
	Seq     uint32
	Command Command
	// ReturnCode is only set on device replies.
	ReturnCode uint32
	// HasReturnCode reports whether the frame carried a return code.
	HasReturnCode bool
	Payload       []byte
}

// encodeFrame serialises f. The return code is written when f.HasReturnCode is set.
func encodeFrame(f Frame) []byte {
	body := f.Payload
	if f.HasReturnCode {
		body = append(binary.BigEndian.AppendUint32(nil, f.ReturnCode), f.Payload...)
	}

	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.BigEndian, framePrefix)
	_ = binary.Write(buf, binary.BigEndian, f.Seq)
	_ = binary.Write(buf, binary.BigEndian, uint32(f.Command))
	_ = binary.Write(buf, binary.BigEndian, uint32(len(body)+trailerLen))
	buf.Write(body)
	_ = binary.Write(buf, binary.BigEndian, crc32.ChecksumIEEE(buf.Bytes()))
	_ = binary.Write(buf, binary.BigEndian, frameSuffix)

	return buf.Bytes()
}

// readFrame reads one frame from r. When reply is set, a leading return code
// is detected and split off the payload.
func readFrame(r io.Reader, reply bool) (Frame, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}

	if binary.BigEndian.Uint32(header[0:4]) != framePrefix {
		return Frame{}, errBadPrefix
	}

	length := binary.BigEndian.Uint32(header[12:16])
	if length < trailerLen || length > maxFrameLen {
		return Frame{}, fmt.Errorf("%w: %d", errFrameLength, length)
	}

	rest := make([]byte, length)
	if _, err := io.ReadFull(r, rest); err != nil {
		return Frame{}, err
	}

	body := rest[:length-trailerLen]
	checksum := binary.BigEndian.Uint32(rest[length-trailerLen : length-4])

	if binary.BigEndian.Uint32(rest[length-4:]) != frameSuffix {
		return Frame{}, errBadSuffix
	}

	if crc32.Update(crc32.ChecksumIEEE(header), crc32.IEEETable, body) != checksum {
		return Frame{}, errBadChecksum
	}

	frame := Frame{
		Seq:     binary.BigEndian.Uint32(header[4:8]),
		Command: Command(binary.BigEndian.Uint32(header[8:12])),
		Payload: body,
	}

	// Return codes are small integers; encrypted or versioned payloads never
	// start with three zero bytes.
	if reply && len(body) >= 4 && binary.BigEndian.Uint32(body[:4])&0xFFFFFF00 == 0 {
		frame.ReturnCode = binary.BigEndian.Uint32(body[:4])
		frame.HasReturnCode = true
		frame.Payload = body[4:]
	}

	return frame, nil
}

// sealPayload encrypts plaintext for cmd, adding the version header where required.
func sealPayload(cmd Command, key, plaintext []byte) ([]byte, error) {
	ciphertext, err := aesEcbEncrypt(plaintext, key)
	if err != nil {
		return nil, err
	}

	if cmd == CommandQuery || cmd == CommandHeartbeat {
		return ciphertext, nil
	}

	return append([]byte(versionHeader), ciphertext...), nil
}

// openPayload strips an optional version header and decrypts the payload.
// An empty payload yields nil without error.
func openPayload(key, payload []byte) ([]byte, error) {
	payload = bytes.TrimPrefix(payload, []byte(versionHeader))
	if len(payload) == 0 {
		return nil, nil
	}

	return aesEcbDecrypt(payload, key)
}
