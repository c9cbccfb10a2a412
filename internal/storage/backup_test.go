package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.db")
	enc := filepath.Join(dir, "plain.db.enc")
	out := filepath.Join(dir, "restored.db")

	content := []byte("tournament data goes here")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}

	if err := EncryptFile(src, enc, "hunter2"); err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}

	raw, err := os.ReadFile(enc)
	if err != nil {
		t.Fatalf("failed to read encrypted file: %v", err)
	}
	if !strings.HasPrefix(string(raw), backupMagicHeader) {
		t.Error("expected magic header on encrypted file")
	}
	if strings.Contains(string(raw), "tournament data") {
		t.Error("plaintext leaked into encrypted file")
	}

	if err := DecryptFile(enc, out, "hunter2"); err != nil {
		t.Fatalf("failed to decrypt: %v", err)
	}
	restored, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read restored file: %v", err)
	}
	if string(restored) != string(content) {
		t.Errorf("restored content differs: %q", restored)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.db")
	enc := filepath.Join(dir, "plain.db.enc")

	if err := os.WriteFile(src, []byte("secret"), 0o600); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}
	if err := EncryptFile(src, enc, "correct"); err != nil {
		t.Fatalf("failed to encrypt: %v", err)
	}

	if err := DecryptFile(enc, filepath.Join(dir, "out.db"), "wrong"); err == nil {
		t.Fatal("expected decryption to fail with wrong password")
	}
}

func TestDecryptRejectsForeignFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "not-a-backup")
	if err := os.WriteFile(src, []byte("just some text, long enough to pass the length check........."), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if err := DecryptFile(src, filepath.Join(dir, "out.db"), "pw"); err == nil {
		t.Fatal("expected error for file without magic header")
	}
}

func TestBackupAndExport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "tracker.db")

	cfg := DefaultConfig(dbPath)
	cfg.AutoMigrate = true
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Conn().Exec(
		`INSERT INTO decks (id, title, game, created_at, updated_at)
		 VALUES ('d1', 'Burn', 'magic', '2024-01-05T00:00:00Z', '2024-01-05T00:00:00Z')`); err != nil {
		t.Fatalf("failed to insert deck: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("failed to close database: %v", err)
	}

	bm := NewBackupManager(dbPath)
	backupDir := filepath.Join(dir, "backups")

	backupPath, err := bm.Backup(backupDir)
	if err != nil {
		t.Fatalf("failed to create backup: %v", err)
	}

	copied, err := Open(DefaultConfig(backupPath))
	if err != nil {
		t.Fatalf("failed to open backup: %v", err)
	}
	defer copied.Close()
	var count int
	if err := copied.Conn().QueryRow(`SELECT COUNT(*) FROM decks`).Scan(&count); err != nil {
		t.Fatalf("failed to query backup: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected backup to contain the deck, got %d rows", count)
	}

	exportPath, err := bm.Export(filepath.Join(dir, "exports"), "hunter2")
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	if !strings.HasSuffix(exportPath, ".enc") {
		t.Errorf("expected encrypted export path, got %s", exportPath)
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Errorf("expected export file to exist: %v", err)
	}
}
