package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"readcast/internal/logger"
)

const rateLimitCode = 1002

// APIError is a failed speech call with the HTTP status and the provider's base_resp code.
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("speech api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("speech api returned status %d: %s", e.HTTPStatus, e.Message)
}

type AudioSettings struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
	Channel    int    `json:"channel"`
}

var DefaultAudio = AudioSettings{SampleRate: 32000, Bitrate: 128000, Format: "mp3", Channel: 1}

// Speaker turns one piece of text into encoded audio with a single attempt.
type Speaker interface {
	Speak(ctx context.Context, text string, voice Voice) ([]byte, error)
}

type ClientOptions struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	Audio      AudioSettings
	HTTPClient *http.Client
}

// Client calls the MiniMax t2a_v2 endpoint.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	timeout  time.Duration
	audio    AudioSettings
	http     *http.Client
	log      *logger.Logger
}

func NewClient(opts ClientOptions, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("MINIMAX_API_KEY is not set")
	}
	if log == nil {
		log = logger.Nop()
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.minimaxi.com"
	}
	if opts.Model == "" {
		opts.Model = "speech-2.6-hd"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Audio == (AudioSettings{}) {
		opts.Audio = DefaultAudio
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		endpoint: base + "/v1/t2a_v2",
		apiKey:   opts.APIKey,
		model:    opts.Model,
		timeout:  opts.Timeout,
		audio:    opts.Audio,
		http:     hc,
		log:      log.Component("tts_client"),
	}, nil
}

type speechRequest struct {
	Model          string        `json:"model"`
	Text           string        `json:"text"`
	Stream         bool          `json:"stream"`
	Voice          Voice         `json:"voice_setting"`
	Audio          AudioSettings `json:"audio_setting"`
	SubtitleEnable bool          `json:"subtitle_enable"`
}

type speechResponse struct {
	Data *struct {
		Audio string `json:"audio"`
	} `json:"data"`
	Audio    string `json:"audio"`
	BaseResp *struct {
		StatusCode int    `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`
}

func (c *Client) Speak(ctx context.Context, text string, voice Voice) ([]byte, error) {
	body, err := json.Marshal(speechRequest{Model: c.model, Text: text, Voice: voice, Audio: c.audio})
	if err != nil {
		return nil, fmt.Errorf("encode speech request: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build speech request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}

	var out speechResponse
	decodeErr := json.Unmarshal(raw, &out)
	if out.BaseResp != nil && out.BaseResp.StatusCode != 0 {
		return nil, &APIError{HTTPStatus: resp.StatusCode, Code: out.BaseResp.StatusCode, Message: out.BaseResp.StatusMsg}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{HTTPStatus: resp.StatusCode, Message: snippet(raw)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode speech response: %w", decodeErr)
	}

	payload := out.Audio
	if out.Data != nil && out.Data.Audio != "" {
		payload = out.Data.Audio
	}
	if payload == "" {
		return nil, ErrEmptyAudio
	}
	audio, err := DecodeAudio(payload)
	if err != nil {
		return nil, err
	}
	if Container(audio) == "" {
		c.log.Warn("decoded audio has no mp3 header", "header", fmt.Sprintf("%x", head(audio, 10)), "bytes", len(audio))
	}
	return audio, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}

func head(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}
