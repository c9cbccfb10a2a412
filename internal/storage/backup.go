package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/argon2"
)

const (
	// backupMagicHeader is prepended to encrypted backup files for identification.
	backupMagicHeader = "TCGTENC1"

	// Argon2id parameters (RFC 9106 recommendations)
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32 // 256 bits for AES-256

	saltLength = 32
)

// BackupManager handles database backup and encrypted export, the payload
// handed to the cloud-backup feature.
type BackupManager struct {
	dbPath string
}

// NewBackupManager creates a new backup manager for the given database path.
func NewBackupManager(dbPath string) *BackupManager {
	return &BackupManager{dbPath: dbPath}
}

// Backup creates a backup of the database in dir using VACUUM INTO, which is
// atomic and doesn't require exclusive locks. Returns the backup file path.
func (bm *BackupManager) Backup(dir string) (string, error) {
	if dir == "" {
		dir = filepath.Join(filepath.Dir(bm.dbPath), "backups")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("backup_%s.db", time.Now().Format("20060102_150405"))
	backupPath := filepath.Join(dir, name)

	sourceDB, err := sql.Open("sqlite", bm.dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source database: %w", err)
	}
	defer sourceDB.Close()

	if _, err := sourceDB.Exec("VACUUM INTO ?", backupPath); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}

	return backupPath, nil
}

// deriveKey derives an encryption key from a password using Argon2id.
func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

// EncryptFile encrypts src into dst with AES-256-GCM under a password-derived
// key. The output layout is: magic header, salt, nonce, ciphertext.
func EncryptFile(src, dst, password string) error {
	plaintext, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(backupMagicHeader)+len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, backupMagicHeader...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)

	if err := os.WriteFile(dst, out, 0o600); err != nil {
		return fmt.Errorf("failed to write encrypted file: %w", err)
	}
	return nil
}

// DecryptFile decrypts a file produced by EncryptFile.
func DecryptFile(src, dst, password string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read encrypted file: %w", err)
	}

	if len(data) < len(backupMagicHeader)+saltLength {
		return fmt.Errorf("encrypted file is truncated")
	}
	if string(data[:len(backupMagicHeader)]) != backupMagicHeader {
		return fmt.Errorf("not an encrypted backup file")
	}
	data = data[len(backupMagicHeader):]

	salt := data[:saltLength]
	data = data[saltLength:]

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(data) < gcm.NonceSize() {
		return fmt.Errorf("encrypted file is truncated")
	}
	nonce := data[:gcm.NonceSize()]
	ciphertext := data[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("failed to decrypt backup (wrong password?): %w", err)
	}

	if err := os.WriteFile(dst, plaintext, 0o600); err != nil {
		return fmt.Errorf("failed to write decrypted file: %w", err)
	}
	return nil
}

// Export creates an encrypted backup ready for upload and returns its path.
func (bm *BackupManager) Export(dir, password string) (string, error) {
	backupPath, err := bm.Backup(dir)
	if err != nil {
		return "", err
	}
	defer os.Remove(backupPath)

	exportPath := backupPath + ".enc"
	if err := EncryptFile(backupPath, exportPath, password); err != nil {
		return "", fmt.Errorf("failed to encrypt backup: %w", err)
	}
	return exportPath, nil
}
