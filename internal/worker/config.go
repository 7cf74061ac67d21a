package worker

import (
	"fmt"
	"strings"

	"github.com/charlesng35/dgnotes/pkg/validator"
)

// Default shell generation shipped with the application.
const DefaultGenerationLabel = "dgnotes-cache-v1.0.51"

// DefaultShellManifest lists the resources every generation precaches.
var DefaultShellManifest = []string{"/", "/index.html", "/manifest.json"}

// CacheConfig names one cache generation and the shell resources it must hold.
// Changing the label is what makes a new version install.
type CacheConfig struct {
	GenerationLabel string   `json:"generation_label" validate:"required,max=128"`
	ShellManifest   []string `json:"shell_manifest" validate:"required,min=1,dive,required,urlpath"`
}

// DefaultCacheConfig returns the shipped generation.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		GenerationLabel: DefaultGenerationLabel,
		ShellManifest:   append([]string(nil), DefaultShellManifest...),
	}
}

// Validate checks the label and manifest entries.
func (c CacheConfig) Validate() error {
	if strings.TrimSpace(c.GenerationLabel) != c.GenerationLabel {
		return fmt.Errorf("worker: generation label %q has surrounding whitespace", c.GenerationLabel)
	}
	if err := validator.ValidateStruct(c); err != nil {
		return fmt.Errorf("worker: invalid cache config: %w", err)
	}
	return nil
}
