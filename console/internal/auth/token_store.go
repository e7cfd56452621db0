package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"trackdash/console/internal/config"
	"trackdash/console/internal/db"
)

var tokenValue atomic.Value // holds string

func SetCurrentToken(t string) { tokenValue.Store(t) }

func GetCurrentToken() string {
	if v := tokenValue.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

var ErrNoToken = errors.New("no stored session token")

// SaveToken persists the session token to the token file and the cache database.
func SaveToken(token string) error {
	path := config.TokenFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir token dir: %w", err)
	}
	if adb := db.Get(); adb != nil {
		_ = adb.Create(&db.Token{Value: token}).Error
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

// LoadToken reads the token file, falling back to the newest cached token.
func LoadToken() (string, error) {
	if b, err := os.ReadFile(config.TokenFilePath()); err == nil {
		if tok := strings.TrimSpace(string(b)); tok != "" {
			return tok, nil
		}
	}
	if adb := db.Get(); adb != nil {
		var t db.Token
		if err := adb.Order("id DESC").First(&t).Error; err == nil && t.Value != "" {
			return t.Value, nil
		}
	}
	return "", ErrNoToken
}

// ClearToken removes every stored copy of the token.
func ClearToken() error {
	SetCurrentToken("")
	if adb := db.Get(); adb != nil {
		_ = adb.Where("1 = 1").Delete(&db.Token{}).Error
	}
	if err := os.Remove(config.TokenFilePath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
