package models

import (
	"fmt"
	"strings"
)

// WhisperLanguage decides which language to request from a whisper model.
// It returns "" when no language must be set: English-only models accept
// nothing else and treat any SetLanguage call as an error.
func WhisperLanguage(multilingual bool, language string) (string, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "auto"
	}

	if multilingual {
		return language, nil
	}

	switch language {
	case "auto", "en":
		return "", nil
	default:
		return "", fmt.Errorf("model is English-only, cannot transcribe language %q", language)
	}
}

// EnglishOnly reports whether info names an English-only whisper model.
func (m ModelInfo) EnglishOnly() bool {
	return m.Engine == EngineWhisper && strings.HasSuffix(strings.TrimSuffix(m.Filename, ".bin"), ".en")
}
