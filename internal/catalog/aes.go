package catalog

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// AESDecrypter decrypts AES-128-CBC segments with PKCS#7 padding, the scheme
// HLS uses for encrypted media. Key references have the form "name@ivhex".
type AESDecrypter struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

// NewAESDecrypter returns an empty decrypter.
func NewAESDecrypter() *AESDecrypter {
	return &AESDecrypter{keys: make(map[string][]byte)}
}

// Add registers a 16-byte key under name.
func (d *AESDecrypter) Add(name string, key []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[name] = append([]byte(nil), key...)
}

// FormatKeyRef builds the reference a segment carries for key name and iv.
func FormatKeyRef(name string, iv []byte) string {
	return name + "@" + hex.EncodeToString(iv)
}

func parseKeyRef(ref string) (string, []byte, error) {
	name, ivHex, ok := strings.Cut(ref, "@")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("malformed key reference %q", ref)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", nil, fmt.Errorf("malformed iv in key reference %q", ref)
	}
	return name, iv, nil
}

func sequenceIV(index uint32) []byte {
	iv := make([]byte, aes.BlockSize)
	binary.BigEndian.PutUint32(iv[aes.BlockSize-4:], index)
	return iv
}

// Decrypt implements segment.Decrypter.
func (d *AESDecrypter) Decrypt(data []byte, keyRef string) ([]byte, error) {
	name, iv, err := parseKeyRef(keyRef)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	key, ok := d.keys[name]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown key %q", name)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(data))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	return unpad(plain)
}

var errBadPadding = errors.New("invalid PKCS#7 padding")

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errBadPadding
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, errBadPadding
		}
	}
	return b[:len(b)-n], nil
}
