// Package gemini implements the token-counting oracle and the speech
// synthesizer over the Gemini generative language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/bookvoice/synth"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config holds the client settings.
type Config struct {
	APIKey  string
	BaseURL string        // override for testing; defaults to the public API
	Model   string        // model used for synthesis requests
	Timeout time.Duration // per-request HTTP timeout
}

// Client talks to the Gemini API. It performs no retries of its own;
// retry policy belongs to the chunk validator and the orchestration loop.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// New creates a Gemini client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, synth.ErrMissingAPIKey
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type countTokensRequest struct {
	Contents []content `json:"contents"`
}

type countTokensResponse struct {
	TotalTokens int `json:"totalTokens"`
}

// CountTokens implements synth.SizeEstimator.
func (c *Client) CountTokens(ctx context.Context, model, text string) (int, error) {
	if model == "" {
		model = c.model
	}
	body := countTokensRequest{Contents: []content{{Parts: []part{{Text: text}}}}}

	var resp countTokensResponse
	if err := c.post(ctx, model, "countTokens", body, &resp); err != nil {
		return 0, err
	}
	log.Debug("counted tokens", "model", model, "chars", len(text), "tokens", resp.TotalTokens)
	return resp.TotalTokens, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	SafetySettings   []safetySetting   `json:"safetySettings,omitempty"`
}

type generationConfig struct {
	Temperature        float64       `json:"temperature"`
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	LanguageCode string       `json:"languageCode,omitempty"`
	VoiceConfig  *voiceConfig `json:"voiceConfig,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig *prebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// defaultSafetySettings relax the filters that most often misfire on
// fiction; genuinely blocked content still surfaces as ErrSafetyBlocked.
var defaultSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

// Synthesize implements synth.Synthesizer. The style prompt, when set, is
// prefixed to the chunk text exactly as it is for token counting.
func (c *Client) Synthesize(ctx context.Context, req synth.SynthesisRequest) ([]byte, synth.AudioParams, error) {
	text := req.Text
	if req.StylePrompt != "" {
		text = req.StylePrompt + "\n\n" + text
	}

	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
		GenerationConfig: &generationConfig{
			Temperature:        req.Temperature,
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				LanguageCode: req.LanguageCode,
				VoiceConfig: &voiceConfig{
					PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: req.Voice},
				},
			},
		},
		SafetySettings: defaultSafetySettings,
	}

	var resp generateResponse
	if err := c.post(ctx, c.model, "generateContent", body, &resp); err != nil {
		return nil, synth.AudioParams{}, err
	}

	if resp.PromptFeedback.BlockReason != "" {
		return nil, synth.AudioParams{}, fmt.Errorf("%w: %s", synth.ErrSafetyBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, synth.AudioParams{}, synth.ErrSynthesisRefused
	}

	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case "SAFETY", "PROHIBITED_CONTENT":
		return nil, synth.AudioParams{}, fmt.Errorf("%w: finish reason %s", synth.ErrSafetyBlocked, cand.FinishReason)
	case "MAX_TOKENS":
		return nil, synth.AudioParams{}, synth.ErrLengthExceeded
	}

	for _, p := range cand.Content.Parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, synth.AudioParams{}, fmt.Errorf("%w: %v", synth.ErrNoAudioData, err)
		}
		params := paramsFromMime(p.InlineData.MimeType)
		log.Debug("synthesized audio", "bytes", len(raw), "mime", p.InlineData.MimeType)
		return raw, params, nil
	}

	return nil, synth.AudioParams{}, synth.ErrNoAudioData
}

// paramsFromMime reads the sample rate out of a mime type like
// "audio/L16;codec=pcm;rate=24000", falling back to the model default.
func paramsFromMime(mime string) synth.AudioParams {
	params := synth.DefaultAudioParams()
	for _, f := range strings.Split(mime, ";") {
		f = strings.TrimSpace(f)
		if v, ok := strings.CutPrefix(f, "rate="); ok {
			if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
				params.SampleRate = rate
			}
		}
	}
	return params
}

func (c *Client) post(ctx context.Context, model, method string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/models/%s:%s", c.baseURL, model, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", synth.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", synth.ErrServiceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	return nil
}

func classifyStatus(status int, body []byte) error {
	detail := apiErrorMessage(body)
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", synth.ErrRateLimited, detail)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", synth.ErrServiceUnavailable, status, detail)
	case status == http.StatusBadRequest && strings.Contains(strings.ToLower(detail), "token"):
		return fmt.Errorf("%w: %s", synth.ErrLengthExceeded, detail)
	default:
		return fmt.Errorf("HTTP %d: %s", status, detail)
	}
}

func apiErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
