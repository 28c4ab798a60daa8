package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the opaque collaborator surface: model identifier, the contact
// destination and transport settings. Model-provider credentials are read
// by the genai client itself from its own environment.
type Config struct {
	Addr           string `env:"ADDR" envDefault:":8080"`
	GeminiModel    string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash-001"`
	WhatsAppNumber string `env:"WHATSAPP_NUMBER" envDefault:"6281234567890"`
	JWTSecret      string `env:"JWT_SECRET" envDefault:"concierge-dev-secret"`
	Debug          bool   `env:"DEBUG"`
}

func Parse() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}
