package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// loadDotEnv loads each env file that exists, ".env" when none are given.
// Variables already set in the process win over file values, and earlier
// files win over later ones.
func loadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		err := godotenv.Load(path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			continue
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
