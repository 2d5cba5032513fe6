package asr

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// buildWAV 构造一个最小的 RIFF/WAVE 文件，data 块内容为 pcm。
func buildWAV(pcm []byte) []byte {
	var buf []byte
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+len(pcm)))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = append(buf, make([]byte, 16)...)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(pcm)))
	buf = append(buf, pcm...)
	return buf
}

func writeClip(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}
	return path
}

func newTestClient(t *testing.T, tokenURL, asrURL string) *BaiduClient {
	t.Helper()
	client, err := NewBaiduClient("app", "key", "secret", 16000)
	if err != nil {
		t.Fatalf("NewBaiduClient err: %v", err)
	}
	client.TokenURL = tokenURL
	client.ASRURL = asrURL
	return client
}

func TestBaiduTranscribeSendsRawPCM(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	tokenCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-123", "expires_in": 3600})
	})
	mux.HandleFunc("/recognize", func(w http.ResponseWriter, r *http.Request) {
		var req baiduASRRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request err: %v", err)
		}
		if req.Token != "tok-123" {
			t.Errorf("unexpected token %q", req.Token)
		}
		if req.Format != "pcm" || req.Rate != 16000 || req.Channel != 1 {
			t.Errorf("unexpected audio params: %+v", req)
		}
		decoded, _ := base64.StdEncoding.DecodeString(req.Speech)
		if string(decoded) != string(pcm) {
			t.Errorf("expected stripped PCM payload, got % x", decoded)
		}
		if req.Len != len(pcm) {
			t.Errorf("len mismatch: %d != %d", req.Len, len(pcm))
		}
		json.NewEncoder(w).Encode(map[string]any{"err_no": 0, "result": []string{"你好世界"}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL+"/token", server.URL+"/recognize")
	clip := writeClip(t, buildWAV(pcm))

	text, err := client.Transcribe(context.Background(), clip)
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if text != "你好世界" {
		t.Fatalf("unexpected transcript %q", text)
	}

	// 第二次转写应复用缓存的 token。
	if _, err := client.Transcribe(context.Background(), clip); err != nil {
		t.Fatalf("second Transcribe err: %v", err)
	}
	if tokenCalls != 1 {
		t.Fatalf("expected cached token, got %d token requests", tokenCalls)
	}
}

func TestBaiduTranscribeBusinessError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/recognize", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"err_no": 3307, "err_msg": "speech quality error"})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL+"/token", server.URL+"/recognize")
	clip := writeClip(t, buildWAV([]byte{0, 0, 0, 0}))

	_, err := client.Transcribe(context.Background(), clip)
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if providerErr.Code != 3307 {
		t.Fatalf("unexpected code %d", providerErr.Code)
	}
}

func TestBaiduTranscribeEmptyResult(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/recognize", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"err_no": 0, "result": []string{}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL+"/token", server.URL+"/recognize")
	clip := writeClip(t, buildWAV([]byte{0, 0}))

	text, err := client.Transcribe(context.Background(), clip)
	if err != nil {
		t.Fatalf("expected nil error for empty result, got %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty transcript, got %q", text)
	}
}

func TestExtractPCMNonWAVPassthrough(t *testing.T) {
	raw := []byte("not a wav file at all")
	if got := extractPCM(raw); string(got) != string(raw) {
		t.Fatalf("expected passthrough, got % x", got)
	}
}

func TestNewBaiduClientMissingCredentials(t *testing.T) {
	if _, err := NewBaiduClient("", "key", "secret", 16000); err == nil {
		t.Fatalf("expected error for missing app id")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(Options{Provider: "aliyun"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
