package character

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
)

// metadataFile 是 modelscan 工具在每个角色目录下生成的描述文件。
const metadataFile = "metadata.json"

type rawEmotion struct {
	File         string `json:"file"`
	RefAudioPath string `json:"ref_audio_path"`
	Text         string `json:"text"`
	RefText      string `json:"ref_text"`
	Lang         string `json:"lang"`
}

type rawMetadata struct {
	ID                string                `json:"id"`
	Name              string                `json:"name"`
	GPTFilename       string                `json:"gpt_filename"`
	GPTPath           string                `json:"gpt_path"`
	SoVITSFilename    string                `json:"sovits_filename"`
	SoVITSPath        string                `json:"sovits_path"`
	DefaultEmotion    string                `json:"default_emotion"`
	Emotions          map[string]rawEmotion `json:"emotions"`
	AvailableEmotions []string              `json:"available_emotions"`
}

// LoadDir scans modelsDir for role directories carrying a metadata.json and
// turns each into a Preset with all paths resolved to absolute ones.
// Broken entries are skipped with a log line; a missing directory yields an
// empty list rather than an error.
func LoadDir(modelsDir string) []Preset {
	entries, err := os.ReadDir(modelsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[character] failed to read models dir %s: %v", modelsDir, err)
		}
		return nil
	}

	var presets []Preset
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		roleDir := filepath.Join(modelsDir, entry.Name())
		preset, ok := loadRole(roleDir, entry.Name())
		if !ok {
			continue
		}
		presets = append(presets, preset)
	}

	return presets
}

func loadRole(roleDir, fallbackID string) (Preset, bool) {
	data, err := os.ReadFile(filepath.Join(roleDir, metadataFile))
	if err != nil {
		return Preset{}, false
	}

	var meta rawMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		log.Printf("[character] invalid metadata in %s: %v", roleDir, err)
		return Preset{}, false
	}

	id := meta.ID
	if id == "" {
		id = fallbackID
	}

	name := meta.Name
	if name == "" {
		name = id
	}

	gptRel := meta.GPTFilename
	if gptRel == "" {
		gptRel = meta.GPTPath
	}
	sovitsRel := meta.SoVITSFilename
	if sovitsRel == "" {
		sovitsRel = meta.SoVITSPath
	}

	emotions := make(map[string]EmotionRef, len(meta.Emotions))
	for key, raw := range meta.Emotions {
		fileRel := raw.File
		if fileRel == "" {
			fileRel = raw.RefAudioPath
		}

		text := raw.Text
		if text == "" {
			text = raw.RefText
		}

		lang := raw.Lang
		if lang == "" {
			lang = "zh"
		}

		emotions[key] = EmotionRef{
			RefAudioPath: resolvePath(roleDir, fileRel),
			RefText:      text,
			Lang:         lang,
		}
	}

	defaultEmotion := meta.DefaultEmotion
	if defaultEmotion == "" {
		defaultEmotion = "neutral"
	}

	available := meta.AvailableEmotions
	if len(available) == 0 {
		available = make([]string, 0, len(emotions))
		for key := range emotions {
			available = append(available, key)
		}
	}

	return Preset{
		ID:                id,
		Name:              name,
		GPTPath:           resolvePath(roleDir, gptRel),
		SoVITSPath:        resolvePath(roleDir, sovitsRel),
		DefaultEmotion:    defaultEmotion,
		Emotions:          emotions,
		AvailableEmotions: available,
	}, true
}

func resolvePath(roleDir, rel string) string {
	if rel == "" {
		return ""
	}
	abs, err := filepath.Abs(filepath.Join(roleDir, rel))
	if err != nil {
		return filepath.Join(roleDir, rel)
	}
	return abs
}
