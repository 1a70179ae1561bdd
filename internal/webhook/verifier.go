package webhook

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Verifier checks inbound delivery authenticity before any workflow side
// effect happens
type Verifier struct {
	verifyToken string
	encryptKey  string
	logger      *zap.Logger
}

// NewVerifier creates a new webhook verifier
func NewVerifier(verifyToken, encryptKey string, logger *zap.Logger) *Verifier {
	return &Verifier{
		verifyToken: verifyToken,
		encryptKey:  encryptKey,
		logger:      logger,
	}
}

// VerifyChallenge handles the initial webhook challenge verification
func (v *Verifier) VerifyChallenge(body []byte) (string, error) {
	var challenge struct {
		Challenge string `json:"challenge"`
		Token     string `json:"token"`
		Type      string `json:"type"`
	}

	if err := json.Unmarshal(body, &challenge); err != nil {
		return "", fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	if challenge.Type != "url_verification" {
		return "", fmt.Errorf("invalid challenge type: %s", challenge.Type)
	}

	if v.verifyToken != "" && challenge.Token != v.verifyToken {
		return "", fmt.Errorf("invalid verification token")
	}

	return challenge.Challenge, nil
}

// VerifySignature verifies the delivery signature:
// SHA-256 over timestamp + nonce + encrypt key + body.
// Verification is disabled when no encrypt key is configured.
func (v *Verifier) VerifySignature(timestamp, nonce, signature, body string) bool {
	if v.encryptKey == "" {
		return true
	}
	content := timestamp + nonce + v.encryptKey + body
	hash := sha256.Sum256([]byte(content))
	calculated := fmt.Sprintf("%x", hash)
	return calculated == signature
}

// DecryptData decrypts an encrypted event payload (AES-256-CBC, base64)
func (v *Verifier) DecryptData(encryptedData string) (string, error) {
	if v.encryptKey == "" {
		return encryptedData, nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedData)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	key := []byte(v.encryptKey)
	if len(key) != 32 {
		padded := make([]byte, 32)
		copy(padded, key)
		key = padded
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(ciphertext) < aes.BlockSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	iv := ciphertext[:aes.BlockSize]
	ciphertext = ciphertext[aes.BlockSize:]

	mode := cipher.NewCBCDecrypter(block, iv)
	plaintext := make([]byte, len(ciphertext))
	mode.CryptBlocks(plaintext, ciphertext)

	plaintext = removePKCS7Padding(plaintext)
	return string(plaintext), nil
}

func removePKCS7Padding(data []byte) []byte {
	if len(data) == 0 {
		return data
	}

	padding := int(data[len(data)-1])
	if padding > len(data) || padding > aes.BlockSize {
		return data
	}

	return data[:len(data)-padding]
}
