package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// keySize is the AES-128 key length derived from the shared secret
const keySize = 16

// DecodeError reports a ciphertext that could not be turned back into plaintext.
// Callers map it to a client error; it never carries key material.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode failed: %s: %v", e.Reason, e.Err)
	}
	return "decode failed: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is or wraps a *DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// ErrEmptySecret is returned when the shared secret is blank
var ErrEmptySecret = errors.New("secret key is empty")

// AESECBCodec encrypts gateway payloads with AES-128 in ECB mode.
//
// WARNING: ECB enciphers every 16-byte block independently, so identical
// plaintext blocks produce identical ciphertext blocks and the structure of
// the payload leaks. It has no semantic security and no integrity protection.
// The bank gateway mandates this exact scheme on the wire; do not reuse this
// codec for anything else.
type AESECBCodec struct{}

// NewAESECBCodec creates a codec
func NewAESECBCodec() *AESECBCodec {
	return &AESECBCodec{}
}

// DeriveKey returns the first 16 bytes of SHA-256(secret)
func DeriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:keySize]
}

// Encrypt pads plaintext with PKCS#7, enciphers it block by block and
// returns standard base64 text.
func (c *AESECBCodec) Encrypt(plaintext []byte, secretKey string) ([]byte, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, ErrEmptySecret
	}

	block, err := aes.NewCipher(DeriveKey(secretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	// ECB: no IV, no chaining
	for i := 0; i < len(padded); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(out)))
	base64.StdEncoding.Encode(encoded, out)
	return encoded, nil
}

// Decrypt reverses Encrypt. Any malformed input yields a *DecodeError.
func (c *AESECBCodec) Decrypt(ciphertext []byte, secretKey string) ([]byte, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, ErrEmptySecret
	}

	raw := make([]byte, base64.StdEncoding.DecodedLen(len(ciphertext)))
	n, err := base64.StdEncoding.Decode(raw, bytes.TrimSpace(ciphertext))
	if err != nil {
		return nil, &DecodeError{Reason: "invalid base64", Err: err}
	}
	raw = raw[:n]

	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("ciphertext length %d is not a multiple of %d", len(raw), aes.BlockSize)}
	}

	block, err := aes.NewCipher(DeriveKey(secretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], raw[i:i+aes.BlockSize])
	}

	plaintext, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid padding", Err: err}
	}
	if !utf8.Valid(plaintext) {
		return nil, &DecodeError{Reason: "plaintext is not valid UTF-8"}
	}
	return plaintext, nil
}

// DecryptJSON decrypts and additionally requires the plaintext to be JSON
func (c *AESECBCodec) DecryptJSON(ciphertext []byte, secretKey string) ([]byte, error) {
	plaintext, err := c.Decrypt(ciphertext, secretKey)
	if err != nil {
		return nil, err
	}
	if !json.Valid(plaintext) {
		return nil, &DecodeError{Reason: "plaintext is not JSON"}
	}
	return plaintext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data), len(data)+padLen)
	copy(padded, data)
	return append(padded, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty input")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("pad length %d out of range", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("inconsistent pad bytes")
		}
	}
	return data[:len(data)-padLen], nil
}
