package config

import "time"

const (
	// Diagnosis request timeout, both bot-side and relay-to-upstream.
	RequestTimeout = 45 * time.Second

	// Persisted history ceiling
	PersistCeiling = 4 * 1024 * 1024

	// Original image file size ceiling, checked before encoding
	MaxImageBytes = 5 * 1024 * 1024

	// History degradation ladder
	MaxPersistedTurns   = 50
	ImageRetentionTurns = 10
	TrimmedTurns        = 20
	FallbackTurns       = 10

	// In-memory chat sessions kept before LRU eviction
	MaxTrackedChats = 512
)

// AllowedImageTypes is the fixed allow-list of raster encodings accepted
// for upload.
var AllowedImageTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/webp",
	"image/heic",
	"image/heif",
}

// PromptSuggestions shown on /start.
var PromptSuggestions = []string{
	"🔍 Analyze this skin condition",
	"❓ What could this be?",
	"⚕️ Recommended treatments",
	"🛡️ Prevention tips",
}

func IsAllowedImageType(mime string) bool {
	for _, t := range AllowedImageTypes {
		if t == mime {
			return true
		}
	}
	return false
}
