package stronghold

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/scrypt"
)

// ErrWrongPassword is returned when a sealed blob can not be opened with the provided password.
var ErrWrongPassword = errors.New("wrong password")

const saltLength = 32

// scrypt parameters, see https://godoc.org/golang.org/x/crypto/scrypt for recommended values.
const (
	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// seal encrypts the plaintext with a key derived from the password. The layout of the returned blob is
// nonce || ciphertext || salt.
func seal(plainText, password []byte) (sealed []byte, err error) {
	key, salt, err := deriveKey(password, nil)
	if err != nil {
		return nil, err
	}

	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(blockCipher)
	if err != nil {
		return nil, errors.Errorf("failed to create GCM: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, errors.Errorf("failed to generate nonce: %w", err)
	}

	sealed = gcm.Seal(nonce, nonce, plainText, nil)
	sealed = append(sealed, salt...)

	return
}

// unseal decrypts a blob produced by seal. A failed authentication is reported as ErrWrongPassword.
func unseal(sealed, password []byte) (plainText []byte, err error) {
	if len(sealed) <= saltLength {
		return nil, errors.New("sealed blob is too short")
	}
	salt, data := sealed[len(sealed)-saltLength:], sealed[:len(sealed)-saltLength]

	key, _, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}

	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(blockCipher)
	if err != nil {
		return nil, errors.Errorf("failed to create GCM: %w", err)
	}
	if len(data) < gcm.NonceSize() {
		return nil, errors.New("sealed blob is too short")
	}
	nonce, cipherText := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plainText, err = gcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}

	return
}

// deriveKey stretches the password into a 32 byte key. A nil salt generates a fresh one.
func deriveKey(password, salt []byte) (key []byte, usedSalt []byte, err error) {
	if salt == nil {
		salt = make([]byte, saltLength)
		if _, err = rand.Read(salt); err != nil {
			return nil, nil, errors.Errorf("failed to generate salt: %w", err)
		}
	}
	key, err = scrypt.Key(password, salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, nil, errors.Errorf("failed to derive key: %w", err)
	}

	return key, salt, nil
}
