// Package elevenlabs provides an ElevenLabs-backed synthesizer using the
// ElevenLabs batch text-to-speech REST API. It implements the
// tts.Synthesizer interface.
//
// Vocifer synthesizes one utterance per request and caches the resulting
// blob, so the batch endpoint (POST /v1/text-to-speech/{voice_id}) is used
// rather than the streaming WebSocket API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/vocifer/pkg/provider/tts"
	"github.com/MrWong99/vocifer/pkg/types"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_flash_v2_5"
	defaultTimeout = 30 * time.Second

	// ProviderName is the provider identifier used in assignments, rule
	// files ("Eleven:voice" scoping), and cache keys.
	ProviderName = "eleven"
)

// Option is a functional option for configuring the ElevenLabs Synthesizer.
type Option func(*Synthesizer)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(s *Synthesizer) {
		s.model = model
	}
}

// WithBaseURL overrides the API base URL. Useful for tests.
func WithBaseURL(baseURL string) Option {
	return func(s *Synthesizer) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Synthesizer) {
		s.httpClient = client
	}
}

// Synthesizer implements tts.Synthesizer backed by the ElevenLabs REST API.
type Synthesizer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// New creates a new ElevenLabs Synthesizer. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	s := &Synthesizer{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// ---- Request/response types ----

// synthesizeRequest is the JSON payload for POST /v1/text-to-speech/{voice_id}.
type synthesizeRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

// apiError mirrors the ElevenLabs error envelope.
type apiError struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// voicesResponse mirrors GET /v1/voices.
type voicesResponse struct {
	Voices []struct {
		VoiceID string            `json:"voice_id"`
		Name    string            `json:"name"`
		Labels  map[string]string `json:"labels"`
	} `json:"voices"`
}

// Synthesize renders text using the batch TTS endpoint and returns the
// encoded audio (MP3 by default). Vendor rejections are returned as
// [*tts.VendorError].
func (s *Synthesizer) Synthesize(ctx context.Context, text string, selection types.VoiceSelection) ([]byte, error) {
	if selection.VoiceName == "" {
		return nil, errors.New("elevenlabs: selection.VoiceName must not be empty")
	}

	payload := synthesizeRequest{
		Text:    text,
		ModelID: s.model,
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           selection.Rate,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", s.baseURL, selection.VoiceName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.vendorError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	return audio, nil
}

// ListVoices fetches the account's current voice catalogue.
func (s *Synthesizer) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.vendorError(resp)
	}

	var parsed voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("elevenlabs: decode voices: %w", err)
	}

	voices := make([]tts.Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		voices = append(voices, tts.Voice{
			ID:     v.VoiceID,
			Name:   v.Name,
			Gender: labelGender(v.Labels),
			Labels: v.Labels,
		})
	}
	return voices, nil
}

// vendorError converts a non-200 response into a [*tts.VendorError],
// extracting the vendor message when the error envelope parses.
func (s *Synthesizer) vendorError(resp *http.Response) error {
	msg := resp.Status
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(raw) > 0 {
		var parsed apiError
		if json.Unmarshal(raw, &parsed) == nil && parsed.Detail.Message != "" {
			msg = parsed.Detail.Message
		}
	}
	return &tts.VendorError{
		Provider:   ProviderName,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}

// labelGender maps the catalogue's "gender" label to a [types.Gender].
func labelGender(labels map[string]string) types.Gender {
	switch strings.ToLower(labels["gender"]) {
	case "male":
		return types.GenderMale
	case "female":
		return types.GenderFemale
	}
	return types.GenderUnknown
}
