package stores

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/colonyops/pantry/internal/core/kv"
	"github.com/colonyops/pantry/internal/data/db"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// IsBusyError returns true if the error is a SQLITE_BUSY error.
func IsBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_BUSY
	}
	return false
}

// IsCorruptionError returns true if the error indicates database corruption.
func IsCorruptionError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CORRUPT ||
			code == sqlite3.SQLITE_NOTADB ||
			code == sqlite3.SQLITE_CANTOPEN
	}

	// Also check for common corruption error messages
	errStr := err.Error()
	return strings.Contains(errStr, "database disk image is malformed") ||
		strings.Contains(errStr, "file is not a database") ||
		strings.Contains(errStr, "database corruption")
}

// IsNotFoundError returns true if the error is a "not found" error from
// either the SQL layer or a medium.
func IsNotFoundError(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, kv.ErrNotFound)
}

// RecoverFromCorruption moves a corrupted database and its WAL/SHM files
// aside so the next Open starts from an empty file.
func RecoverFromCorruption(dataDir string) error {
	dbPath := filepath.Join(dataDir, db.FileName)
	backupPath := fmt.Sprintf("%s.corrupt.%s", dbPath, time.Now().Format("20060102-150405"))

	if err := os.Rename(dbPath, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("backup corrupted database: %w", err)
	}

	// Stale WAL/SHM files would be replayed against the fresh database.
	for _, suffix := range []string{"-wal", "-shm"} {
		src := dbPath + suffix
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.Rename(src, backupPath+suffix); err != nil {
			if rmErr := os.Remove(src); rmErr != nil {
				return fmt.Errorf("backup or remove %s: %w", suffix, err)
			}
		}
	}

	return nil
}

