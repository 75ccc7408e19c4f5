package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/raihanakbr/call-assist/internal/config"
)

// Recognition engines selectable with SPEECH_RECOGNITION_BACKEND.
const (
	EngineGoogle = "google"
	EngineWit    = "wit"
	EngineAzure  = "azure"
)

// Engine recognizes a decoded audio clip
type Engine interface {
	Recognize(ctx context.Context, clip *AudioClip) (string, error)
}

// NewEngine returns the engine named by cfg.SpeechRecognitionBackend, or nil when
// the name is not supported.
func NewEngine(cfg config.Config, client *http.Client) Engine {
	switch cfg.SpeechRecognitionBackend {
	case EngineGoogle:
		return &GoogleWeb{Key: cfg.GoogleSpeechAPIKey, Language: cfg.LanguageCode, Client: client}
	case EngineWit:
		return &Wit{Key: cfg.WitAIKey, Client: client}
	case EngineAzure:
		return &Azure{Key: cfg.AzureSpeechKey, Location: cfg.AzureSpeechLocation, Language: cfg.LanguageCode, Client: client}
	default:
		return nil
	}
}

// GoogleWeb uses the Google web speech API (audio/l16 upload)
type GoogleWeb struct {
	Key      string
	Language string
	BaseURL  string
	Client   *http.Client
}

const googleWebURL = "https://www.google.com/speech-api/v2/recognize"

type googleWebResponse struct {
	Result []struct {
		Alternative []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternative"`
		Final bool `json:"final"`
	} `json:"result"`
}

// Recognize uploads the clip as big-endian 16-bit PCM
func (g *GoogleWeb) Recognize(ctx context.Context, clip *AudioClip) (string, error) {
	u, err := url.Parse(orDefault(g.BaseURL, googleWebURL))
	if err != nil {
		return "", fmt.Errorf("parse google speech URL: %w", err)
	}
	q := u.Query()
	q.Set("client", "chromium")
	q.Set("lang", g.Language)
	q.Set("key", g.Key)
	q.Set("output", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(clip.PCM16BE()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/l16; rate="+strconv.Itoa(clip.SampleRate))

	body, err := doRequest(client(g.Client), req)
	if err != nil {
		return "", err
	}

	// The response is one JSON object per line; the first is usually empty.
	dec := json.NewDecoder(bytes.NewReader(body))
	for {
		var resp googleWebResponse
		if err := dec.Decode(&resp); err != nil {
			if errors.Is(err, io.EOF) {
				return "", nil
			}
			return "", fmt.Errorf("decode google speech response: %w", err)
		}
		for _, result := range resp.Result {
			if len(result.Alternative) > 0 {
				return result.Alternative[0].Transcript, nil
			}
		}
	}
}

// Wit uses the wit.ai speech endpoint
type Wit struct {
	Key     string
	BaseURL string
	Client  *http.Client
}

const witURL = "https://api.wit.ai/speech?v=20240304"

// Recognize uploads the original WAV file and keeps the last non-empty text
// from the streamed partial results.
func (w *Wit) Recognize(ctx context.Context, clip *AudioClip) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, orDefault(w.BaseURL, witURL), bytes.NewReader(clip.Raw))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.Key)
	req.Header.Set("Content-Type", "audio/wav")

	body, err := doRequest(client(w.Client), req)
	if err != nil {
		return "", err
	}

	var text string
	dec := json.NewDecoder(bytes.NewReader(body))
	for {
		var chunk struct {
			Text  string `json:"text"`
			Text0 string `json:"_text"`
		}
		if err := dec.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return text, nil
			}
			return "", fmt.Errorf("decode wit response: %w", err)
		}
		if t := orDefault(chunk.Text, chunk.Text0); t != "" {
			text = t
		}
	}
}

// Azure uses the Azure speech-to-text REST API for short audio
type Azure struct {
	Key      string
	Location string
	Language string
	BaseURL  string
	Client   *http.Client
}

// Recognize uploads the original WAV file
func (a *Azure) Recognize(ctx context.Context, clip *AudioClip) (string, error) {
	base := a.BaseURL
	if base == "" {
		if a.Location == "" {
			return "", fmt.Errorf("azure speech location not configured")
		}
		base = fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", a.Location)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse azure speech URL: %w", err)
	}
	q := u.Query()
	q.Set("language", a.Language)
	q.Set("format", "simple")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(clip.Raw))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.Key)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate="+strconv.Itoa(clip.SampleRate))
	req.Header.Set("Accept", "application/json")

	body, err := doRequest(client(a.Client), req)
	if err != nil {
		return "", err
	}

	var resp struct {
		RecognitionStatus string `json:"RecognitionStatus"`
		DisplayText       string `json:"DisplayText"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode azure response: %w", err)
	}
	switch resp.RecognitionStatus {
	case "Success":
		return resp.DisplayText, nil
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return "", nil
	default:
		return "", fmt.Errorf("azure recognition status %s", resp.RecognitionStatus)
	}
}

func doRequest(c *http.Client, req *http.Request) ([]byte, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func client(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
