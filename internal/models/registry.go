// Package models resolves speech model names to weights on disk and
// downloads missing ones.
package models

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Engine is the inference runtime a model belongs to.
type Engine string

const (
	EngineWhisper Engine = "whisper"
	EngineVosk    Engine = "vosk"
)

// ErrUnknownModel is returned when a name is neither in the registry nor an
// existing local path.
var ErrUnknownModel = errors.New("unknown model")

const hfWhisperBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// ModelInfo describes one downloadable model.
type ModelInfo struct {
	ID        string   // short identifier, e.g. "whisper-small"
	Aliases   []string // alternative names, e.g. "openai/whisper-small"
	Engine    Engine
	Filename  string // file or directory name inside the cache
	URL       string
	Size      int64 // approximate, used when the server sends no length
	IsZip     bool
	LocalPath string // set for models given as a path instead of a name
}

func whisperModel(size, file string, mb int64) ModelInfo {
	return ModelInfo{
		ID:       "whisper-" + size,
		Aliases:  []string{"openai/whisper-" + size, file},
		Engine:   EngineWhisper,
		Filename: file,
		URL:      hfWhisperBase + file,
		Size:     mb << 20,
	}
}

// Registry lists every model the transcriber can fetch by name.
var Registry = []ModelInfo{
	whisperModel("tiny", "ggml-tiny.bin", 75),
	whisperModel("tiny.en", "ggml-tiny.en.bin", 75),
	whisperModel("base", "ggml-base.bin", 142),
	whisperModel("base.en", "ggml-base.en.bin", 142),
	whisperModel("small", "ggml-small.bin", 466),
	whisperModel("small.en", "ggml-small.en.bin", 466),
	whisperModel("medium", "ggml-medium.bin", 1500),
	whisperModel("medium.en", "ggml-medium.en.bin", 1500),
	whisperModel("large-v2", "ggml-large-v2.bin", 2900),
	whisperModel("large-v3", "ggml-large-v3.bin", 2900),
	whisperModel("large-v3-turbo", "ggml-large-v3-turbo.bin", 1500),
	{
		ID:       "whisper-small-q5",
		Engine:   EngineWhisper,
		Filename: "ggml-small-q5_1.bin",
		URL:      hfWhisperBase + "ggml-small-q5_1.bin",
		Size:     190 << 20,
	},
	{
		ID:       "vosk-en-small",
		Aliases:  []string{"vosk-model-small-en-us-0.15"},
		Engine:   EngineVosk,
		Filename: "vosk-model-small-en-us-0.15",
		URL:      "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Size:     40 << 20,
		IsZip:    true,
	},
	{
		ID:       "vosk-en",
		Aliases:  []string{"vosk-model-en-us-0.22"},
		Engine:   EngineVosk,
		Filename: "vosk-model-en-us-0.22",
		URL:      "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22.zip",
		Size:     1800 << 20,
		IsZip:    true,
	},
	{
		ID:       "vosk-ru-small",
		Aliases:  []string{"vosk-model-small-ru-0.22"},
		Engine:   EngineVosk,
		Filename: "vosk-model-small-ru-0.22",
		URL:      "https://alphacephei.com/vosk/models/vosk-model-small-ru-0.22.zip",
		Size:     45 << 20,
		IsZip:    true,
	},
}

// Lookup finds a registry entry by ID or alias. Matching ignores case.
func Lookup(name string) (ModelInfo, bool) {
	for _, m := range Registry {
		if strings.EqualFold(m.ID, name) {
			return m, true
		}
		for _, alias := range m.Aliases {
			if strings.EqualFold(alias, name) {
				return m, true
			}
		}
	}
	return ModelInfo{}, false
}

// Resolve maps a user-supplied model name to a ModelInfo. Existing local
// paths win over registry names: a directory is treated as a Vosk model and
// a file as whisper.cpp weights.
func Resolve(name string) (ModelInfo, error) {
	if name == "" {
		return ModelInfo{}, fmt.Errorf("%w: empty name", ErrUnknownModel)
	}

	if stat, err := os.Stat(name); err == nil {
		engine := EngineWhisper
		if stat.IsDir() {
			engine = EngineVosk
		}
		return ModelInfo{ID: name, Engine: engine, LocalPath: name}, nil
	}

	if info, ok := Lookup(name); ok {
		return info, nil
	}

	return ModelInfo{}, fmt.Errorf("%w: %s", ErrUnknownModel, name)
}

// ResolveFor resolves name and checks that it can run on engine. Unknown
// names are reported together with the models available for that engine.
func ResolveFor(name string, engine Engine) (ModelInfo, error) {
	info, err := Resolve(name)
	if errors.Is(err, ErrUnknownModel) {
		return ModelInfo{}, fmt.Errorf("%w (available %s models: %s)", err, engine, strings.Join(IDs(ByEngine(engine)), ", "))
	}
	if err != nil {
		return ModelInfo{}, err
	}
	if info.Engine != engine {
		return ModelInfo{}, fmt.Errorf("model %s is a %s model, not usable with the %s backend", name, info.Engine, engine)
	}
	return info, nil
}

// IDs returns the registry IDs of models.
func IDs(models []ModelInfo) []string {
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids
}

// ByEngine returns all registry models for an engine.
func ByEngine(engine Engine) []ModelInfo {
	var result []ModelInfo
	for _, m := range Registry {
		if m.Engine == engine {
			result = append(result, m)
		}
	}
	return result
}
