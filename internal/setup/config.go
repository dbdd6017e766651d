package setup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the BentoML home directory.
const HomeEnv = "BENTOML_HOME"

const (
	defaultHomeName = "bentoml"
	yataiConfigName = ".yatai.yaml"
	bentoStoreName  = "bentos"
)

// Home returns the BentoML home directory: $BENTOML_HOME when set, otherwise
// ~/bentoml.
func Home() (string, error) {
	if home := strings.TrimSpace(os.Getenv(HomeEnv)); home != "" {
		return filepath.Abs(home)
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(userHome, defaultHomeName), nil
}

// YataiConfigPath is the file holding the persisted yatai contexts.
func YataiConfigPath(home string) string {
	return filepath.Join(home, yataiConfigName)
}

// BentoStoreDir is the root of the local bento store.
func BentoStoreDir(home string) string {
	return filepath.Join(home, bentoStoreName)
}

// Prepare creates the home and bento store directories when missing.
func Prepare(home string) error {
	if home == "" {
		return errors.New("bentoml home is not configured")
	}
	for _, dir := range []string{home, BentoStoreDir(home)} {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		getLogger().Debug("creating directory", "path", dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
