package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	os.Setenv("HTTP_ADDRESS", "")
	os.Setenv("ENGINE", "")
	os.Setenv("OPENAI_MODEL_ID", "")
	os.Setenv("SPEECH_LOCALE", "")
	os.Setenv("TTS_PROVIDER", "")
	cfg := Load()
	if cfg.HTTPAddress != ":8080" {
		t.Fatalf("expected default http address, got %q", cfg.HTTPAddress)
	}
	if cfg.Engine != "openai" {
		t.Fatalf("expected default engine openai, got %q", cfg.Engine)
	}
	if cfg.OpenAIModelID == "" {
		t.Fatalf("expected default model id")
	}
	if cfg.SpeechLocale != "en-US" {
		t.Fatalf("expected default locale, got %q", cfg.SpeechLocale)
	}
	if cfg.TTSProvider != "deepgram" {
		t.Fatalf("expected default tts provider, got %q", cfg.TTSProvider)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("ENGINE", "local")
	os.Setenv("SPEECH_LOCALE", "de-DE")
	defer func() {
		os.Setenv("ENGINE", "")
		os.Setenv("SPEECH_LOCALE", "")
	}()
	cfg := Load()
	if cfg.Engine != "local" {
		t.Fatalf("expected local engine, got %q", cfg.Engine)
	}
	if cfg.SpeechLocale != "de-DE" {
		t.Fatalf("expected de-DE locale, got %q", cfg.SpeechLocale)
	}
}
