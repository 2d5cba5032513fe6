package asr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"
)

// 百度短语音识别的默认接入点。dev_pid 1537 对应标准版普通话，兼容性最好。
const (
	baiduTokenURL = "https://aip.baidubce.com/oauth/2.0/token"
	baiduASRURL   = "http://vop.baidu.com/server_api"

	baiduDevPID = 1537
	baiduCUID   = "cyber-idol-user-001"
)

// BaiduClient 调用百度短语音识别 HTTP 接口。
type BaiduClient struct {
	appID      string
	apiKey     string
	secretKey  string
	sampleRate int

	// 测试时可指向 httptest 服务。
	TokenURL string
	ASRURL   string

	httpClient *http.Client

	mu            sync.Mutex
	accessToken   string
	tokenExpireAt time.Time
}

// NewBaiduClient validates the credential triple and returns a client.
func NewBaiduClient(appID, apiKey, secretKey string, sampleRate int) (*BaiduClient, error) {
	if appID == "" || apiKey == "" || secretKey == "" {
		return nil, fmt.Errorf("缺少百度语音识别配置")
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	return &BaiduClient{
		appID:      appID,
		apiKey:     apiKey,
		secretKey:  secretKey,
		sampleRate: sampleRate,
		TokenURL:   baiduTokenURL,
		ASRURL:     baiduASRURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type baiduTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *BaiduClient) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpireAt.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	params := url.Values{}
	params.Set("grant_type", "client_credentials")
	params.Set("client_id", c.apiKey)
	params.Set("client_secret", c.secretKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("获取百度 Token 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("获取百度 Token 失败: status %d", resp.StatusCode)
	}

	var tokenResp baiduTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("解析百度 Token 响应失败: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("百度 Token 响应缺少 access_token")
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpireAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	log.Printf("[asr] 百度 Access Token 获取成功")
	return c.accessToken, nil
}

type baiduASRRequest struct {
	Format  string `json:"format"`
	Rate    int    `json:"rate"`
	DevPID  int    `json:"dev_pid"`
	Channel int    `json:"channel"`
	Token   string `json:"token"`
	CUID    string `json:"cuid"`
	Len     int    `json:"len"`
	Speech  string `json:"speech"`
}

type baiduASRResponse struct {
	ErrNo  int      `json:"err_no"`
	ErrMsg string   `json:"err_msg"`
	Result []string `json:"result"`
}

// Transcribe sends the clip's PCM frames to the recognition endpoint and
// returns the first transcript candidate. Business failures surface as
// *ProviderError carrying the err_no code.
func (c *BaiduClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("读取音频文件失败: %w", err)
	}

	// 发送裸 PCM，避免 WAV 头干扰服务端的格式识别。
	pcm := extractPCM(data)
	if len(pcm) == 0 {
		return "", fmt.Errorf("音频数据为空: %s", audioPath)
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return "", err
	}

	payload := baiduASRRequest{
		Format:  "pcm",
		Rate:    c.sampleRate,
		DevPID:  baiduDevPID,
		Channel: 1,
		Token:   token,
		CUID:    baiduCUID,
		Len:     len(pcm),
		Speech:  base64.StdEncoding.EncodeToString(pcm),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ASRURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("百度识别请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("百度识别请求失败: status %d", resp.StatusCode)
	}

	var result baiduASRResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析百度识别响应失败: %w", err)
	}

	// 百度在 HTTP 200 下通过 err_no 上报业务错误。
	if result.ErrNo != 0 {
		return "", &ProviderError{Code: result.ErrNo, Message: result.ErrMsg}
	}

	if len(result.Result) == 0 {
		return "", nil
	}
	return result.Result[0], nil
}

// extractPCM strips the RIFF/WAVE container and returns the data chunk.
// Non-WAV input is returned unchanged.
func extractPCM(data []byte) []byte {
	if len(data) < 44 || !bytes.HasPrefix(data, []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return data
	}

	// 逐块查找 data chunk。
	offset := 12
	for offset+8 <= len(data) {
		chunkID := data[offset : offset+4]
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if bytes.Equal(chunkID, []byte("data")) {
			end := body + chunkSize
			if end > len(data) {
				end = len(data)
			}
			return data[body:end]
		}

		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	return data
}
