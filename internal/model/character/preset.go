package character

// EmotionRef 指向某个情绪对应的参考音频与提示文本。
type EmotionRef struct {
	RefAudioPath string `json:"ref_audio_path"`
	RefText      string `json:"ref_text"`
	Lang         string `json:"lang"`
}

// Preset 描述一个可供会话选择的音色角色，启动时从模型目录加载，之后只读。
type Preset struct {
	ID                string                `json:"id"`
	Name              string                `json:"name"`
	GPTPath           string                `json:"gpt_path"`
	SoVITSPath        string                `json:"sovits_path"`
	DefaultEmotion    string                `json:"default_emotion"`
	Emotions          map[string]EmotionRef `json:"emotions"`
	AvailableEmotions []string              `json:"available_emotions"`
}
