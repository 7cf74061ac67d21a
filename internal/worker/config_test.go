package worker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheConfigValidate(t *testing.T) {
	require.NoError(t, DefaultCacheConfig().Validate())

	cases := map[string]CacheConfig{
		"missing label":  {ShellManifest: []string{"/"}},
		"padded label":   {GenerationLabel: " v2 ", ShellManifest: []string{"/"}},
		"empty manifest": {GenerationLabel: "v2"},
		"relative entry": {GenerationLabel: "v2", ShellManifest: []string{"index.html"}},
		"absolute url":   {GenerationLabel: "v2", ShellManifest: []string{"//cdn.example.com/app.js"}},
		"fragment entry": {GenerationLabel: "v2", ShellManifest: []string{"/#home"}},
		"blank entry":    {GenerationLabel: "v2", ShellManifest: []string{"/", ""}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultCacheConfigIsACopy(t *testing.T) {
	cfg := DefaultCacheConfig()
	cfg.ShellManifest[0] = "/changed"
	require.Equal(t, "/", DefaultShellManifest[0])
}
