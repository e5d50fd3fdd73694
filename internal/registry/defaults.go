package registry

import "github.com/ILLUVRSE/council/internal/models"

// FastParticipantID is the low-latency member used by the fast path.
const FastParticipantID = "groq-llama-3.1-8b"

// DefaultParticipants is the built-in council: five Groq-hosted and three NVIDIA NIM-hosted models.
func DefaultParticipants() []models.Participant {
	return []models.Participant{
		{
			ID:                 "groq-qwen3-32b",
			Provider:           models.ProviderGroq,
			DisplayName:        "Qwen3 32B",
			Model:              "qwen/qwen3-32b",
			ContextWindow:      131072,
			Temperature:        0.6,
			MaxTokens:          4096,
			Specialty:          "reasoning",
			Color:              "#ff6b35",
			RingPosition:       0,
			RateLimitPerMinute: 20,
		},
		{
			ID:                 FastParticipantID,
			Provider:           models.ProviderGroq,
			DisplayName:        "Llama 3.1 8B",
			Model:              "llama-3.1-8b-instant",
			ContextWindow:      131072,
			Temperature:        1.0,
			MaxTokens:          1024,
			Specialty:          "fast",
			Color:              "#00d4ff",
			RingPosition:       1,
			RateLimitPerMinute: 20,
		},
		{
			ID:                 "groq-llama-4-scout",
			Provider:           models.ProviderGroq,
			DisplayName:        "Llama 4 Scout",
			Model:              "meta-llama/llama-4-scout-17b-16e-instruct",
			ContextWindow:      131072,
			Temperature:        1.0,
			MaxTokens:          1024,
			Specialty:          "multimodal",
			Color:              "#9b59b6",
			RingPosition:       2,
			RateLimitPerMinute: 20,
		},
		{
			ID:                 "groq-kimi-k2",
			Provider:           models.ProviderGroq,
			DisplayName:        "Kimi K2",
			Model:              "moonshotai/kimi-k2-instruct-0905",
			ContextWindow:      262144,
			Temperature:        0.6,
			MaxTokens:          4096,
			Specialty:          "long-context",
			Color:              "#e74c3c",
			RingPosition:       3,
			RateLimitPerMinute: 10,
		},
		{
			ID:                 "groq-gpt-oss-120b",
			Provider:           models.ProviderGroq,
			DisplayName:        "GPT-OSS 120B",
			Model:              "openai/gpt-oss-120b",
			ContextWindow:      131072,
			Temperature:        1.0,
			MaxTokens:          8192,
			Specialty:          "reasoning",
			Color:              "#10a37f",
			RingPosition:       4,
			RateLimitPerMinute: 10,
		},
		{
			ID:                 "nvidia-minimax-m2.1",
			Provider:           models.ProviderNvidia,
			DisplayName:        "MiniMax M2.1",
			Model:              "minimaxai/minimax-m2.1",
			ContextWindow:      205000,
			Temperature:        1.0,
			MaxTokens:          4096,
			Specialty:          "agentic",
			Color:              "#ffd700",
			RingPosition:       5,
			RateLimitPerMinute: 40,
		},
		{
			ID:                 "nvidia-step-3.5-flash",
			Provider:           models.ProviderNvidia,
			DisplayName:        "Step 3.5 Flash",
			Model:              "stepfun-ai/step-3.5-flash",
			ContextWindow:      128000,
			Temperature:        1.0,
			MaxTokens:          16384,
			Specialty:          "fast",
			Color:              "#2ecc71",
			RingPosition:       6,
			RateLimitPerMinute: 40,
		},
		{
			ID:                 "nvidia-devstral-2",
			Provider:           models.ProviderNvidia,
			DisplayName:        "Devstral 2 123B",
			Model:              "mistralai/devstral-2-123b-instruct-2512",
			ContextWindow:      262000,
			Temperature:        0.15,
			MaxTokens:          8192,
			Specialty:          "coding",
			Color:              "#f39c12",
			RingPosition:       7,
			RateLimitPerMinute: 40,
		},
	}
}
