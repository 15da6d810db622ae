package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/scrypt"

	"token-vesting-lab/internal/ledger"
)

// scrypt parameters for the key-derivation function.
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// keystoreFile is the on-disk wallet format: a single secp256k1 key
// encrypted with AES-256-GCM under a scrypt-derived key.
type keystoreFile struct {
	Address    string `json:"address"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// FileStore implements Store over a single keystore file.
type FileStore struct {
	path string
}

// NewFileStore creates a store reading the keystore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// HasWallet reports whether the keystore file exists.
func (s *FileStore) HasWallet() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Address returns the stored account address without decrypting the key.
func (s *FileStore) Address() (string, error) {
	f, err := s.read()
	if err != nil {
		return "", err
	}
	return f.Address, nil
}

// Unlock derives the encryption key from the password and decrypts the
// signing key. A GCM authentication failure means a wrong password.
func (s *FileStore) Unlock(password string) (*btcec.PrivateKey, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(f.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode keystore salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(f.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decode keystore nonce: %w", err)
	}
	cipherText, err := base64.StdEncoding.DecodeString(f.CipherText)
	if err != nil {
		return nil, fmt.Errorf("decode keystore ciphertext: %w", err)
	}

	aead, err := newAEAD(password, salt)
	if err != nil {
		return nil, err
	}

	keyBytes, err := aead.Open(nil, nonce, cipherText, nil)
	if err != nil {
		// GCM reports a wrong password as an authentication failure.
		return nil, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}

	key, _ := btcec.PrivKeyFromBytes(keyBytes)
	return key, nil
}

// Create generates a fresh signing key, encrypts it with the password and
// writes the keystore file. Fails if a wallet already exists.
func (s *FileStore) Create(password, createdAt string) (string, error) {
	if s.HasWallet() {
		return "", fmt.Errorf("keystore already exists at %s", s.path)
	}

	key, err := btcec.NewPrivateKey()
	if err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}
	address := ledger.AddressOf(key.PubKey())

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	aead, err := newAEAD(password, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	cipherText := aead.Seal(nil, nonce, key.Serialize(), nil)

	f := keystoreFile{
		Address:    address,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(cipherText),
		CreatedAt:  createdAt,
	}

	data, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal keystore: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return "", fmt.Errorf("write keystore: %w", err)
	}

	return address, nil
}

func (s *FileStore) read() (*keystoreFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoWallet
		}
		return nil, fmt.Errorf("read keystore: %w", err)
	}

	var f keystoreFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	return &f, nil
}

func newAEAD(password string, salt []byte) (cipher.AEAD, error) {
	derived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return aead, nil
}
