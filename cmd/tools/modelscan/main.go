package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
)

// 参考音频文件名中的中文情绪词到英文情绪键的映射。
var emotionMap = map[string]string{
	"开心": "happy", "高兴": "happy", "兴奋": "happy", "笑": "happy",
	"难过": "sad", "悲伤": "sad", "哭泣": "sad", "遗憾": "sad", "痛苦": "sad",
	"生气": "angry", "愤怒": "angry", "严肃": "angry",
	"恐惧": "fear", "害怕": "fear",
	"吃惊": "surprised", "惊讶": "surprised",
	"中立": "neutral", "默认": "neutral", "平静": "neutral", "普通": "neutral",
}

var emotionMarker = regexp.MustCompile(`【(.*?)】`)

type emotionEntry struct {
	File string `json:"file"`
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type roleMetadata struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	GPTFilename       string                  `json:"gpt_filename"`
	SoVITSFilename    string                  `json:"sovits_filename"`
	DefaultEmotion    string                  `json:"default_emotion"`
	Emotions          map[string]emotionEntry `json:"emotions"`
	AvailableEmotions []string                `json:"available_emotions"`
}

var rootCmd = &cobra.Command{
	Use:   "modelscan [models-dir]",
	Short: "扫描 GPT-SoVITS 角色模型目录并生成 metadata.json 与 manifest.json",
	Long: `modelscan 遍历模型目录下的每个角色子目录，识别 .ckpt/.pth 权重文件
与带有【情绪】标记的参考音频，为每个角色写出 metadata.json，
并在模型目录下汇总生成 manifest.json。`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		modelsDir := filepath.Join("static", "models")
		if len(args) == 1 {
			modelsDir = args[0]
		}
		return scanModels(modelsDir)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func scanModels(modelsDir string) error {
	entries, err := os.ReadDir(modelsDir)
	if err != nil {
		return fmt.Errorf("找不到模型目录 %s: %w", modelsDir, err)
	}

	var manifest []roleMetadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := scanRole(entry.Name(), filepath.Join(modelsDir, entry.Name()))
		if err != nil {
			log.Printf("[WARN] 扫描角色 %s 失败: %v", entry.Name(), err)
			continue
		}
		manifest = append(manifest, meta)
	}

	manifestPath := filepath.Join(modelsDir, "manifest.json")
	if err := writeJSON(manifestPath, manifest); err != nil {
		return fmt.Errorf("写入 manifest.json 失败: %w", err)
	}

	log.Printf("[OK] 已生成汇总清单: %s", manifestPath)
	return nil
}

func scanRole(roleID, rolePath string) (roleMetadata, error) {
	log.Printf("[SCAN] 正在扫描角色: %s ...", roleID)

	meta := roleMetadata{
		ID:             roleID,
		Name:           roleID,
		DefaultEmotion: "neutral",
		Emotions:       make(map[string]emotionEntry),
	}

	err := filepath.WalkDir(rolePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, relErr := filepath.Rel(rolePath, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		switch {
		case strings.HasSuffix(d.Name(), ".ckpt"):
			meta.GPTFilename = rel
		case strings.HasSuffix(d.Name(), ".pth"):
			meta.SoVITSFilename = rel
		case strings.HasSuffix(strings.ToLower(d.Name()), ".wav"):
			key, text := parseReferenceClip(d.Name())
			meta.Emotions[key] = emotionEntry{File: rel, Text: text, Lang: "zh"}
		}
		return nil
	})
	if err != nil {
		return roleMetadata{}, err
	}

	// 保证 neutral 情绪始终可用。
	if _, ok := meta.Emotions["neutral"]; !ok && len(meta.Emotions) > 0 {
		for key, entry := range meta.Emotions {
			log.Printf("[WARN] 角色 %s 没有中立音频，已使用 [%s] 作为默认中立音频。", roleID, key)
			meta.Emotions["neutral"] = entry
			break
		}
	}

	meta.AvailableEmotions = make([]string, 0, len(meta.Emotions))
	for key := range meta.Emotions {
		meta.AvailableEmotions = append(meta.AvailableEmotions, key)
	}

	metadataPath := filepath.Join(rolePath, "metadata.json")
	if err := writeJSON(metadataPath, meta); err != nil {
		return roleMetadata{}, err
	}

	log.Printf("[OK] 生成配置成功：%s", metadataPath)
	log.Printf("     模型: %s / %s", meta.GPTFilename, meta.SoVITSFilename)
	log.Printf("     情绪: %v", meta.AvailableEmotions)
	return meta, nil
}

// parseReferenceClip 从参考音频文件名中取出情绪标记与提示文本。
// 例如 "【开心】今天天气真好.wav" → ("happy", "今天天气真好")。
func parseReferenceClip(filename string) (emotionKey, text string) {
	emotionCN := "默认"
	text = strings.TrimSuffix(filename, filepath.Ext(filename))

	if match := emotionMarker.FindStringSubmatch(filename); match != nil {
		emotionCN = match[1]
		text = strings.TrimSpace(strings.Replace(text, match[0], "", 1))
	}

	return englishEmotionKey(emotionCN), text
}

func englishEmotionKey(chineseKey string) string {
	for key, value := range emotionMap {
		if strings.Contains(chineseKey, key) {
			return value
		}
	}
	return "neutral"
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
