package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"greenledger/internal/domain"
)

// Config models greenledger.yml.
type Config struct {
	Platform struct {
		Name     string `yaml:"name"`
		BaseURL  string `yaml:"base_url"`
		Currency string `yaml:"currency"`
	} `yaml:"platform"`
	Demo struct {
		AutoSeed     bool   `yaml:"auto_seed"`
		DefaultActor string `yaml:"default_actor"`
	} `yaml:"demo"`
	Server struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Roles struct {
		Catalog map[string]struct {
			Description string `yaml:"description"`
		} `yaml:"catalog"`
	} `yaml:"roles"`
	Crops struct {
		Catalog map[string]struct {
			Description string `yaml:"description"`
		} `yaml:"catalog"`
	} `yaml:"crops"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run gl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Platform.Name == "" {
		return fmt.Errorf("config.platform.name is required")
	}
	if c.Platform.Currency == "" {
		return fmt.Errorf("config.platform.currency is required")
	}
	for roleID := range c.Roles.Catalog {
		if roleID == "" {
			return fmt.Errorf("config.roles.catalog contains empty role id")
		}
		if !domain.ValidRole(domain.Role(roleID)) {
			return fmt.Errorf("config.roles.catalog references unknown role %s", roleID)
		}
	}
	for crop := range c.Crops.Catalog {
		if crop == "" {
			return fmt.Errorf("config.crops.catalog contains empty crop id")
		}
	}
	if c.Demo.DefaultActor == "" {
		return fmt.Errorf("config.demo.default_actor is required")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "greenledger.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `platform:
  name: GreenLedger Odisha
  base_url: http://127.0.0.1:8080
  currency: INR

demo:
  auto_seed: true
  default_actor: farmer-1

server:
  addr: 127.0.0.1:8080
  base_path: /v0
  jwt_secret: ""

roles:
  catalog:
    farmer:
      description: "Registers crop batches and schedules pickups"
    transporter:
      description: "Moves shipments and logs telemetry"
    retailer:
      description: "Receives, verifies and rates deliveries"
    consumer:
      description: "Scans QR codes to trace produce"
    admin:
      description: "Seeds demo data and arbitrates payments"

crops:
  catalog:
    paddy:
      description: "Rice paddy, staple crop of the coastal plains"
    turmeric:
      description: "Koraput hill turmeric"
    brinjal:
      description: "Fresh market brinjal"
    chili:
      description: "Dry and green chili"
    groundnut:
      description: "Oilseed groundnut"
    sesame:
      description: "Sesame oilseed"
    maize:
      description: "Feed and food maize"
    coconut:
      description: "Coastal coconut"
    cashew:
      description: "Cashew from Ganjam orchards"
`
