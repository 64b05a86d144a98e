package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	// Engine selects the response engine: "openai" or "local".
	Engine        string
	OpenAIKey     string
	OpenAIModelID string
	OpenAIBaseURL string

	AssemblyAIKey string
	SpeechLocale  string

	// TTSProvider selects the synthesizer backend: "deepgram" or "elevenlabs".
	TTSProvider       string
	DeepgramKey       string
	DeepgramModelID   string
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseBucket         string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded")
	}

	cfg := Config{
		HTTPAddress:            getEnv("HTTP_ADDRESS", ":8080"),
		Engine:                 getEnv("ENGINE", "openai"),
		OpenAIKey:              os.Getenv("OPENAI_API_KEY"),
		OpenAIModelID:          getEnv("OPENAI_MODEL_ID", "gpt-3.5-turbo"),
		OpenAIBaseURL:          os.Getenv("OPENAI_BASE_URL"),
		AssemblyAIKey:          os.Getenv("ASSEMBLYAI_API_KEY"),
		SpeechLocale:           getEnv("SPEECH_LOCALE", "en-US"),
		TTSProvider:            getEnv("TTS_PROVIDER", "deepgram"),
		DeepgramKey:            os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramModelID:        os.Getenv("DEEPGRAM_MODEL_ID"),
		ElevenLabsKey:          os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID:      os.Getenv("ELEVENLABS_VOICE_ID"),
		SupabaseURL:            os.Getenv("SUPABASE_URL"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:         getEnv("SUPABASE_BUCKET", "voice-chat-transcripts"),
	}

	if cfg.Engine == "openai" && cfg.OpenAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - chat completions will report a missing API key")
	}
	if cfg.AssemblyAIKey == "" {
		log.Println("Warning: ASSEMBLYAI_API_KEY not set - voice capture will be unsupported")
	}
	switch cfg.TTSProvider {
	case "deepgram":
		if cfg.DeepgramKey == "" {
			log.Println("Warning: DEEPGRAM_API_KEY not set - speech output will not work")
		}
	case "elevenlabs":
		if cfg.ElevenLabsKey == "" || cfg.ElevenLabsVoiceID == "" {
			log.Println("Warning: ELEVENLABS_API_KEY or ELEVENLABS_VOICE_ID not set - speech output will not work")
		}
	}
	if cfg.SupabaseURL == "" || cfg.SupabaseServiceRoleKey == "" {
		log.Println("Note: Supabase not configured - transcripts will not be archived")
	}

	log.Printf("config: HTTP_ADDRESS=%s ENGINE=%s TTS_PROVIDER=%s", cfg.HTTPAddress, cfg.Engine, cfg.TTSProvider)
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
