package env

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// FileVar names an alternate dotenv file for compose stacks and CI.
const FileVar = "CARGOPARTS_ENV_FILE"

const defaultFile = ".env"

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// LoadDotenv loads the file named by CARGOPARTS_ENV_FILE, or .env. Variables
// already set in the process environment are never overwritten. It returns
// the path it loaded.
func LoadDotenv() (string, error) {
	path := Get(FileVar, defaultFile)
	if err := godotenv.Load(path); err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	return path, nil
}
