// Package speech turns text into audio
package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Voice selects the language and voice of synthesized speech
type Voice struct {
	LanguageCode string
	Name         string
}

// Synthesizer converts text to MP3 audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)
}

var openAIVoices = map[string]openai.SpeechVoice{
	"alloy":   openai.VoiceAlloy,
	"echo":    openai.VoiceEcho,
	"fable":   openai.VoiceFable,
	"onyx":    openai.VoiceOnyx,
	"nova":    openai.VoiceNova,
	"shimmer": openai.VoiceShimmer,
}

// OpenAISynthesizer implements Synthesizer with the OpenAI speech endpoint
type OpenAISynthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
}

// NewOpenAISynthesizer creates a synthesizer using model (e.g. "tts-1")
func NewOpenAISynthesizer(client *openai.Client, model string) *OpenAISynthesizer {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAISynthesizer{client: client, model: openai.SpeechModel(model)}
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          OpenAIVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech synthesis returned no audio")
	}
	return audio, nil
}

// OpenAIVoice maps a configured voice onto an OpenAI voice. Catalog names such
// as "en-US-Standard-C" have no OpenAI equivalent and fall back to alloy.
func OpenAIVoice(v Voice) openai.SpeechVoice {
	if ov, ok := openAIVoices[strings.ToLower(v.Name)]; ok {
		return ov
	}
	return openai.VoiceAlloy
}
