package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/flyflypeng/xiaohongshu-skill/internal/jsonfile"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// ErrDecrypt is returned when the jar cannot be opened with the passphrase
var ErrDecrypt = errors.New("failed to decrypt cookie file")

// encryptedFile is the on-disk envelope
type encryptedFile struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// EncryptedStore keeps the jar AES-GCM encrypted with a PBKDF2 key
type EncryptedStore struct {
	path       string
	passphrase string
}

// NewEncryptedStore creates an encrypted store at path
func NewEncryptedStore(path, passphrase string) *EncryptedStore {
	return &EncryptedStore{path: path, passphrase: passphrase}
}

// Path returns the backing file
func (e *EncryptedStore) Path() string {
	return e.path
}

// Load decrypts the jar; a missing file is an empty jar
func (e *EncryptedStore) Load() ([]Record, error) {
	var envelope encryptedFile
	if err := jsonfile.Read(e.path, &envelope); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
	plaintext, err := decrypt(ciphertext, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	var records []Record
	if err := json.Unmarshal(plaintext, &records); err != nil {
		return nil, fmt.Errorf("failed to parse cookies: %w", err)
	}
	return records, nil
}

// Save encrypts the jar under a fresh salt and replaces the file
func (e *EncryptedStore) Save(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	plaintext, err := json.Marshal(Dedupe(records))
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
	ciphertext, err := encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt cookies: %w", err)
	}

	envelope := encryptedFile{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
		Version:   1,
		Modified:  time.Now(),
	}
	if err := jsonfile.Write(e.path, envelope, 0600); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	return nil
}

// encrypt seals plaintext with AES-GCM, prepending the nonce
func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt opens a nonce-prefixed AES-GCM ciphertext
func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
