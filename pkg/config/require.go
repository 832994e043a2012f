package config

import "fmt"

// NonEmpty reports a missing required env var.
func NonEmpty(value, envName string) error {
	if value == "" {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}
