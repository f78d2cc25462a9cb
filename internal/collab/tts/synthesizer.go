// Package tts voices spoken replies through the OpenAI speech endpoint.
// Optional: the daemon only wires it when --speak is set.
package tts

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type Synthesizer struct {
	client openai.Client
	dir    string
	voice  openai.AudioSpeechNewParamsVoice
}

// New builds a synthesizer writing mp3 files under dir. httpClient may be
// nil; pass the SOCKS client when the API is only reachable through a
// proxy.
func New(apiKey, dir string, httpClient *http.Client) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Synthesizer{
		client: openai.NewClient(opts...),
		dir:    dir,
		voice:  openai.AudioSpeechNewParamsVoice("nova"),
	}, nil
}

// Synthesize renders text to an mp3 file and returns its path.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("empty text")
	}

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelGPT4oMiniTTS,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return "", fmt.Errorf("speech synthesis: %w", err)
	}
	defer resp.Body.Close()

	out := filepath.Join(s.dir, fmt.Sprintf("reply-%d.mp3", time.Now().UnixMilli()))
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("create mp3: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(out)
		return "", fmt.Errorf("write mp3: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close mp3: %w", err)
	}

	log.Debug("reply synthesized", "path", out)
	return out, nil
}
