package config

import "os"

const (
	BackendOllama    = "ollama"
	BackendAnthropic = "anthropic"
	BackendOpenAI    = "openai"
)

// Persona is the system message that anchors every conversation.
const Persona = "Tu es Goût-gle, un expert gastronomique."

// Config holds application configuration
type Config struct {
	Backend     string
	DataDir     string // directory holding part_*.json knowledge files
	WebSearch   bool   // consult the web search provider for each question
	Debug       bool
	OllamaModel string // Model specification in format "model:version" (e.g., "llama3:latest")

	// Secrets, read from the environment (.env supported via godotenv)
	OpenAIKey    string
	AnthropicKey string
	SerpAPIKey   string

	// Web search tuning
	SearchLocale  string   // locale hint passed to the provider
	WineKeywords  []string // query words that trigger domain biasing
	TrustedSites  []string // allow-listed domains for wine-biased queries
	ResultsPerSub int      // per sub-query result cap
	ResultsTotal  int      // overall result cap
}

// FromEnv fills secrets from the environment and applies defaults for
// anything left unset.
func (c *Config) FromEnv() {
	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	c.SerpAPIKey = os.Getenv("SERPAPI_API_KEY")

	if c.SearchLocale == "" {
		c.SearchLocale = "fr"
	}
	if len(c.WineKeywords) == 0 {
		c.WineKeywords = []string{
			"vin", "vins", "chateau", "château", "vintage", "millésime",
			"cuvée", "cuvee", "grand cru", "appellation", "cépage", "domaine",
		}
	}
	if len(c.TrustedSites) == 0 {
		c.TrustedSites = []string{"vivino.com", "hachette-vins.com"}
	}
	if c.ResultsPerSub == 0 {
		c.ResultsPerSub = 3
	}
	if c.ResultsTotal == 0 {
		c.ResultsTotal = 6
	}
}
