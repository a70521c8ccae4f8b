package asr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultModel = "medasr-base"

// Model describes a named acoustic model: conformer weights in the engine's
// format plus the vocabulary that defines its symbol table and blank ID.
type Model struct {
	Name          string
	WeightsFile   string
	VocabFile     string
	WeightsURL    string
	VocabURL      string
	WeightsSHA256 string
	VocabSHA256   string
}

// ResolvedModel is a Model pinned to on-disk paths.
type ResolvedModel struct {
	Name          string
	WeightsPath   string
	VocabPath     string
	WeightsURL    string
	VocabURL      string
	WeightsSHA256 string
	VocabSHA256   string
	NeedsDownload bool
	IsCustomPath  bool
}

var registry = map[string]Model{
	"medasr-base": {
		Name:          "medasr-base",
		WeightsFile:   "medasr-base.bin",
		VocabFile:     "medasr-base.vocab.json",
		WeightsURL:    "https://huggingface.co/google/medasr/resolve/main/medasr-base.bin",
		VocabURL:      "https://huggingface.co/google/medasr/resolve/main/medasr-base.vocab.json",
		WeightsSHA256: "4c7f1a0c2f9d6de0a1b5a58c6f0d2e9b7c43c1582f0a9d6be42d13a7f58e02c9",
		VocabSHA256:   "9e84f0d2a6c35b71e4c0d98213f76aa1505b2dd4a12f8c6e9b07c4e13d65a880",
	},
	"medasr-large": {
		Name:          "medasr-large",
		WeightsFile:   "medasr-large.bin",
		VocabFile:     "medasr-large.vocab.json",
		WeightsURL:    "https://huggingface.co/google/medasr/resolve/main/medasr-large.bin",
		VocabURL:      "https://huggingface.co/google/medasr/resolve/main/medasr-large.vocab.json",
		WeightsSHA256: "b3d9e2f7a45c18c0d6ef9b21a8c4350d17e6fa2b09c58d43e17f60b2a9c4d511",
		VocabSHA256:   "1f2c64ab09d8e735c40ba17d96e258cf3ab04d61e89f72c5013b6d84a0c97ee2",
	},
}

func ModelNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LookupModel(name string) (Model, bool) {
	model, ok := registry[name]
	return model, ok
}

// ResolveModel maps a model reference to on-disk artifact paths. The
// reference is either a registry name stored under modelDir, or a path to a
// directory holding model.bin and vocab.json exported by the user.
func ResolveModel(modelRef, modelDir string) (ResolvedModel, error) {
	if strings.TrimSpace(modelRef) == "" {
		modelRef = DefaultModel
	}

	if model, ok := LookupModel(modelRef); ok {
		if strings.TrimSpace(modelDir) == "" {
			return ResolvedModel{}, errors.New("model directory must not be empty for named model")
		}

		resolved := ResolvedModel{
			Name:          model.Name,
			WeightsPath:   filepath.Join(modelDir, model.WeightsFile),
			VocabPath:     filepath.Join(modelDir, model.VocabFile),
			WeightsURL:    model.WeightsURL,
			VocabURL:      model.VocabURL,
			WeightsSHA256: model.WeightsSHA256,
			VocabSHA256:   model.VocabSHA256,
		}

		for _, path := range []string{resolved.WeightsPath, resolved.VocabPath} {
			_, statErr := os.Stat(path)
			if errors.Is(statErr, os.ErrNotExist) {
				resolved.NeedsDownload = true
				continue
			}
			if statErr != nil {
				return ResolvedModel{}, fmt.Errorf("stat model artifact: %w", statErr)
			}
		}
		return resolved, nil
	}

	if !looksLikePath(modelRef) {
		return ResolvedModel{}, fmt.Errorf("unknown model %q (known models: %s)", modelRef, strings.Join(ModelNames(), ", "))
	}

	customDir := filepath.Clean(modelRef)
	info, err := os.Stat(customDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ResolvedModel{}, fmt.Errorf("custom model path does not exist: %s", customDir)
		}
		return ResolvedModel{}, fmt.Errorf("stat custom model path: %w", err)
	}
	if !info.IsDir() {
		return ResolvedModel{}, fmt.Errorf("custom model path must be a directory containing model.bin and vocab.json: %s", customDir)
	}

	resolved := ResolvedModel{
		Name:         filepath.Base(customDir),
		WeightsPath:  filepath.Join(customDir, "model.bin"),
		VocabPath:    filepath.Join(customDir, "vocab.json"),
		IsCustomPath: true,
	}
	for _, path := range []string{resolved.WeightsPath, resolved.VocabPath} {
		if _, err := os.Stat(path); err != nil {
			return ResolvedModel{}, fmt.Errorf("custom model is missing %s: %w", filepath.Base(path), err)
		}
	}
	return resolved, nil
}

func looksLikePath(input string) bool {
	return strings.ContainsRune(input, os.PathSeparator) || input == "." || strings.HasPrefix(input, "./")
}
