package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"
)

// LoadHostKey reads the host key at path, generating and saving an ed25519
// key when the file does not exist. An empty path yields an ephemeral key.
func LoadHostKey(path string, logger *zap.Logger) (gossh.Signer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		logger.Warn("No host key file configured, using an ephemeral key")
		pemBytes, err := generateHostKey()
		if err != nil {
			return nil, err
		}
		return gossh.ParsePrivateKey(pemBytes)
	}

	pemBytes, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if pemBytes, err = generateHostKey(); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create host key directory: %w", err)
		}
		if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
			return nil, fmt.Errorf("write host key: %w", err)
		}
		logger.Info("Generated host key", zap.String("path", path))
	} else if err != nil {
		return nil, fmt.Errorf("read host key: %w", err)
	}

	signer, err := gossh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse host key %s: %w", path, err)
	}
	logger.Info("Loaded host key",
		zap.String("type", signer.PublicKey().Type()),
		zap.String("fingerprint", gossh.FingerprintSHA256(signer.PublicKey())),
	)
	return signer, nil
}

func generateHostKey() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	block, err := gossh.MarshalPrivateKey(priv, "")
	if err != nil {
		return nil, fmt.Errorf("marshal host key: %w", err)
	}
	return pem.EncodeToMemory(block), nil
}
