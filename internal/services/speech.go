package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"runtime"

	"github.com/jwebster45206/dungeon-master/internal/config"
)

// SpeechService sends narration to a text-to-speech endpoint, writes the
// returned waveform to a fixed file and starts the system audio player.
type SpeechService struct {
	url        string
	voice      string
	output     string
	player     string
	httpClient *http.Client
	logger     *slog.Logger

	// command builds the player process; replaced in tests.
	command func(name string, args ...string) *exec.Cmd
}

type speechRequest struct {
	Text            string `json:"text"`
	AudioPromptPath string `json:"audio_prompt_path,omitempty"`
}

// NewSpeechService creates a speech client from cfg.
func NewSpeechService(cfg config.SpeechConfig, logger *slog.Logger) *SpeechService {
	if logger == nil {
		logger = slog.Default()
	}
	output := cfg.Output
	if output == "" {
		output = "response.wav"
	}
	return &SpeechService{
		url:        cfg.URL,
		voice:      cfg.Voice,
		output:     output,
		player:     cfg.Player,
		httpClient: &http.Client{},
		logger:     logger,
		command:    exec.Command,
	}
}

// Speak synthesises text, overwrites the output file and starts playback.
// It returns once playback has started.
func (s *SpeechService) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := s.Synthesize(ctx, text); err != nil {
		return err
	}
	return s.Play()
}

// Synthesize writes the waveform for text to the output file.
func (s *SpeechService) Synthesize(ctx context.Context, text string) error {
	body, err := json.Marshal(speechRequest{Text: text, AudioPromptPath: s.voice})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("speech request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("speech request failed with status %d: %s", resp.StatusCode, msg)
	}

	f, err := os.Create(s.output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.output, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", s.output, err)
	}

	s.logger.Debug("Speech written", "file", s.output, "bytes", n)
	return nil
}

// Play starts the audio player on the output file without waiting for it.
func (s *SpeechService) Play() error {
	name, args := s.playerCommand()
	if name == "" {
		return fmt.Errorf("no audio player available for %s", runtime.GOOS)
	}

	cmd := s.command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start audio player: %w", err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			s.logger.Warn("Audio player exited with error", "error", err)
		}
	}()
	return nil
}

// Output returns the path of the waveform file.
func (s *SpeechService) Output() string {
	return s.output
}

func (s *SpeechService) playerCommand() (string, []string) {
	if s.player != "" {
		return s.player, []string{s.output}
	}
	switch runtime.GOOS {
	case "darwin":
		return "afplay", []string{s.output}
	case "windows":
		return "powershell", []string{"-c", fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync();", s.output)}
	default:
		return "aplay", []string{"-q", s.output}
	}
}
