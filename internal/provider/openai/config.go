package openai

// Config contains the completion endpoint settings.
//   - APIKey: bearer token, maps to option.WithAPIKey()
//   - BaseURL: maps to option.WithBaseURL()
//   - Timeout: per-call timeout in seconds; retries are handled by the
//     client layer, so the SDK's own retry is disabled.
type Config struct {
	APIKey  string `env:"TRANSLATE_API_KEY"`
	BaseURL string `env:"TRANSLATE_API_URL" envDefault:"https://api.openai.com/v1"`
	Timeout int    `env:"TRANSLATE_TIMEOUT" envDefault:"45"`
}
