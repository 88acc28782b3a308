package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port        int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel    string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	Environment string `mapstructure:"environment" validate:"required,oneof=development production"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey       string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName          string `mapstructure:"model_name" validate:"required"`
	PromptTemplatePath string `mapstructure:"prompt_template_path" validate:"required"`
}

// EngineConfig contains the workflow engine policy settings. The engine
// itself re-validates the assembled value, including the deadline
// ordering and the fixed backoff multiplier.
type EngineConfig struct {
	MaxBatchSize               int `mapstructure:"max_batch_size" validate:"required,gte=1"`
	MaxConcurrentBatches       int `mapstructure:"max_concurrent_batches" validate:"required,gte=1"`
	MaxConcurrentItemsPerBatch int `mapstructure:"max_concurrent_items_per_batch" validate:"required,gte=1"`
	UnitTimeoutSeconds         int `mapstructure:"unit_timeout_seconds" validate:"required,gte=1"`
	BatchTimeoutSeconds        int `mapstructure:"batch_timeout_seconds" validate:"required,gte=1"`
	WorkflowTimeoutSeconds     int `mapstructure:"workflow_timeout_seconds" validate:"required,gte=1"`
}
