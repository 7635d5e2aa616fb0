package env

import "os"

// Get reads an environment variable, returning fallback when it is unset or
// empty. Empty and unset are deliberately not distinguished.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
