package generator

import "google.golang.org/genai"

// Export for testing
type APIClient = apiClient

var (
	NewGeminiWithAPIClient = newGemini
	StripFences            = stripFences
)

// Config returns the request configuration for testing
func (g *GeminiGenerator) Config() *genai.GenerateContentConfig {
	return g.config
}
