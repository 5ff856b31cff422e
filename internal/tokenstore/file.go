package tokenstore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const saltSize = 16

var ErrWrongPassphrase = errors.New("token file cannot be opened with this passphrase")

type fileContents struct {
	Sealed bool              `json:"sealed"`
	Salt   string            `json:"salt,omitempty"`
	Values map[string]string `json:"values"`
}

// File keeps tokens in a JSON file. With a passphrase, each value is sealed
// with XChaCha20-Poly1305 under an Argon2id-derived key.
type File struct {
	path       string
	passphrase []byte
	mu         sync.Mutex
}

func NewFile(path string, passphrase string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("token file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create token directory: %w", err)
	}

	return &File{path: path, passphrase: []byte(passphrase)}, nil
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	contents, err := f.load()
	if err != nil {
		return "", false, err
	}

	raw, ok := contents.Values[key]
	if !ok {
		return "", false, nil
	}

	if !contents.Sealed {
		return raw, true, nil
	}

	value, err := f.open(contents.Salt, raw)
	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

func (f *File) Set(_ context.Context, key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	contents, err := f.load()
	if err != nil {
		return err
	}

	stored := value
	if contents.Sealed {
		stored, err = f.seal(contents.Salt, value)
		if err != nil {
			return err
		}
	}

	contents.Values[key] = stored
	return f.save(contents)
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	contents, err := f.load()
	if err != nil {
		return err
	}

	if _, ok := contents.Values[key]; !ok {
		return nil
	}

	delete(contents.Values, key)
	return f.save(contents)
}

func (f *File) load() (*fileContents, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(strings.TrimSpace(string(data))) == 0) {
		return f.fresh()
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if contents.Values == nil {
		contents.Values = map[string]string{}
	}

	// A file written without a passphrase must not be silently read with one,
	// and the reverse.
	if contents.Sealed != (len(f.passphrase) > 0) {
		return nil, ErrWrongPassphrase
	}

	return &contents, nil
}

func (f *File) fresh() (*fileContents, error) {
	contents := &fileContents{Values: map[string]string{}}
	if len(f.passphrase) == 0 {
		return contents, nil
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	contents.Sealed = true
	contents.Salt = base64.StdEncoding.EncodeToString(salt)

	return contents, nil
}

func (f *File) save(contents *fileContents) error {
	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}

	return nil
}

func (f *File) aead(encodedSalt string) (cipher.AEAD, error) {
	salt, err := base64.StdEncoding.DecodeString(encodedSalt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}

	key := argon2.IDKey(f.passphrase, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
	return chacha20poly1305.NewX(key)
}

func (f *File) seal(encodedSalt string, value string) (string, error) {
	aead, err := f.aead(encodedSalt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (f *File) open(encodedSalt string, stored string) (string, error) {
	aead, err := f.aead(encodedSalt)
	if err != nil {
		return "", err
	}

	sealed, err := base64.StdEncoding.DecodeString(stored)
	if err != nil || len(sealed) < aead.NonceSize() {
		return "", ErrWrongPassphrase
	}

	plain, err := aead.Open(nil, sealed[:aead.NonceSize()], sealed[aead.NonceSize():], nil)
	if err != nil {
		return "", ErrWrongPassphrase
	}

	return string(plain), nil
}
