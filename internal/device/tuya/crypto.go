package tuya

import (
	"bytes"
	"crypto/aes"
	"errors"
)

var (
	errPaddingSize = errors.New("invalid padding size")
	errPadding     = errors.New("invalid padding")
	errECBLength   = errors.New("invalid ecb ciphertext length")
)

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - (len(data) % blockSize)

	return append(append([]byte(nil), data...), bytes.Repeat([]byte{byte(pad)}, pad)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errPaddingSize
	}

	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize {
		return nil, errPadding
	}

	for i := range pad {
		if data[len(data)-1-i] != byte(pad) {
			return nil, errPadding
		}
	}

	return data[:len(data)-pad], nil
}

//nolint:gosec // ECB is what the device firmware speaks.
func aesEcbEncrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	size := block.BlockSize()
	padded := pkcs7Pad(plaintext, size)
	out := make([]byte, len(padded))

	for start := 0; start < len(padded); start += size {
		block.Encrypt(out[start:start+size], padded[start:start+size])
	}

	return out, nil
}

func aesEcbDecrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	size := block.BlockSize()
	if len(ciphertext)%size != 0 {
		return nil, errECBLength
	}

	out := make([]byte, len(ciphertext))
	for start := 0; start < len(ciphertext); start += size {
		block.Decrypt(out[start:start+size], ciphertext[start:start+size])
	}

	return pkcs7Unpad(out, size)
}
