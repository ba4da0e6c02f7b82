package worldmap

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
	"golang.org/x/crypto/argon2"
)

// Blob layout: magic(4) | version(1) | flags(1) | body.
//
// Sealed bodies are salt(16) | nonce(12) | AES-256-GCM ciphertext, with the
// six header bytes as additional data.
const (
	headerSize    = 6
	formatVersion = 1

	flagCompressed = 1 << 0
	flagSealed     = 1 << 1
	knownFlags     = flagCompressed | flagSealed

	saltSize = 16

	// maxDecodedSize bounds decompression of untrusted blobs.
	maxDecodedSize = 1 << 30
)

type blobKind struct {
	magic [4]byte
	what  string
}

var (
	worldMapBlob = blobKind{magic: [4]byte{'A', 'R', 'W', 'M'}, what: "world map"}
	imageMapBlob = blobKind{magic: [4]byte{'A', 'R', 'I', 'M'}, what: "image map"}
)

// codec wraps and unwraps the body of one kind of blob.
type codec struct {
	kind       blobKind
	compress   bool
	passphrase []byte
}

func (c codec) encode(body []byte) ([]byte, error) {
	var flags byte
	var err error

	if c.compress {
		if body, err = compressXZ(body); err != nil {
			return nil, &EncodingError{What: c.kind.what, Err: err}
		}
		flags |= flagCompressed
	}
	if len(c.passphrase) > 0 {
		flags |= flagSealed
	}

	header := c.header(flags)
	if flags&flagSealed != 0 {
		if body, err = seal(c.passphrase, header, body); err != nil {
			return nil, &EncodingError{What: c.kind.what, Err: err}
		}
	}

	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header...)
	return append(out, body...), nil
}

func (c codec) decode(blob []byte) ([]byte, error) {
	fail := func(err error) ([]byte, error) {
		return nil, &DecodingError{What: c.kind.what, Err: err}
	}

	if len(blob) < headerSize {
		return fail(errors.New("blob too short"))
	}
	header, body := blob[:headerSize], blob[headerSize:]
	if !bytes.Equal(header[:4], c.kind.magic[:]) {
		return fail(fmt.Errorf("not a %s blob (magic %q)", c.kind.what, header[:4]))
	}
	if v := header[4]; v != formatVersion {
		return fail(fmt.Errorf("unsupported format version %d", v))
	}
	flags := header[5]
	if flags&^knownFlags != 0 {
		return fail(fmt.Errorf("unknown flags %#x", flags))
	}

	var err error
	if flags&flagSealed != 0 {
		if len(c.passphrase) == 0 {
			return fail(errors.New("blob is sealed and no passphrase is configured"))
		}
		if body, err = unseal(c.passphrase, header, body); err != nil {
			return fail(err)
		}
	}
	if flags&flagCompressed != 0 {
		if body, err = decompressXZ(body); err != nil {
			return fail(err)
		}
	}
	return body, nil
}

func (c codec) header(flags byte) []byte {
	h := make([]byte, headerSize)
	copy(h, c.kind.magic[:])
	h[4] = formatVersion
	h[5] = flags
	return h
}

func compressXZ(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("xz writer: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return nil, fmt.Errorf("xz compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("xz close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressXZ(body []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("xz reader: %w", err)
	}
	out, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("xz decompress: %w", err)
	}
	if len(out) > maxDecodedSize {
		return nil, errors.New("decompressed blob exceeds size limit")
	}
	return out, nil
}

// deriveKey stretches a passphrase into an AES-256 key with Argon2id.
func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 19*1024, 1, 32)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func seal(passphrase, header, plain []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	gcm, err := newGCM(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plain)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plain, header), nil
}

func unseal(passphrase, header, body []byte) ([]byte, error) {
	if len(body) < saltSize {
		return nil, errors.New("sealed body too short")
	}
	salt, rest := body[:saltSize], body[saltSize:]
	gcm, err := newGCM(deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	ns := gcm.NonceSize()
	if len(rest) < ns {
		return nil, errors.New("sealed body too short")
	}
	plain, err := gcm.Open(nil, rest[:ns], rest[ns:], header)
	if err != nil {
		return nil, errors.New("wrong passphrase or tampered blob")
	}
	return plain, nil
}
