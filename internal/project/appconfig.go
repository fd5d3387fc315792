package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/piwi3910/SlabCount/internal/logger"
	"github.com/piwi3910/SlabCount/internal/model"
)

// DefaultConfigDir returns the default directory for application configuration.
// On all platforms this is ~/.slabcount/
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".slabcount")
}

// DefaultConfigPath returns the default path for the application config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// SaveAppConfig persists an AppConfig to the given path, as YAML for
// .yaml/.yml files and JSON otherwise. It creates any missing parent
// directories automatically.
func SaveAppConfig(path string, config model.AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadAppConfig reads an AppConfig from the given path.
// If the file does not exist, it returns DefaultAppConfig with no error.
// Fields missing from the file keep their defaults.
func LoadAppConfig(path string) (model.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.DefaultAppConfig(), nil
		}
		return model.AppConfig{}, err
	}

	config := model.DefaultAppConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return model.AppConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	config.Normalize()
	return config, nil
}

// ApplyEnv overrides config fields from SLABCOUNT_* environment variables.
// Malformed values are logged and ignored.
func ApplyEnv(config *model.AppConfig, log *logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}

	if v := getEnv("SLABCOUNT_LISTEN_ADDR"); v != "" {
		config.ListenAddr = v
	}
	if v := getEnv("SLABCOUNT_UPLOAD_DIR"); v != "" {
		config.UploadDir = v
	}
	if v := getEnv("SLABCOUNT_LOG_MODE"); v != "" {
		config.LogMode = v
	}
	if v := getEnv("SLABCOUNT_CATALOG"); v != "" {
		config.CatalogPath = v
	}
	if v := getEnv("SLABCOUNT_DEMAND_MODE"); v != "" {
		if mode := model.DemandMode(strings.ToLower(v)); mode.Valid() {
			config.Solver.DemandMode = mode
		} else {
			log.Warn("ignoring invalid env value", "key", "SLABCOUNT_DEMAND_MODE", "value", v)
		}
	}
	if v := getEnv("SLABCOUNT_DUPLICATE_POLICY"); v != "" {
		switch p := model.DuplicatePolicy(strings.ToLower(v)); p {
		case model.DuplicateReject, model.DuplicateFirst:
			config.Solver.DuplicatePolicy = p
		default:
			log.Warn("ignoring invalid env value", "key", "SLABCOUNT_DUPLICATE_POLICY", "value", v)
		}
	}

	config.Solver.Workers = getEnvInt("SLABCOUNT_WORKERS", config.Solver.Workers, log)
	config.Solver.MaxNodes = getEnvInt("SLABCOUNT_MAX_NODES", config.Solver.MaxNodes, log)
	config.MaxUploadBytes = int64(getEnvInt("SLABCOUNT_MAX_UPLOAD_BYTES", int(config.MaxUploadBytes), log))

	if v := getEnv("SLABCOUNT_KERF_WIDTH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			config.Solver.KerfWidth = f
		} else {
			log.Warn("ignoring invalid env value", "key", "SLABCOUNT_KERF_WIDTH", "value", v)
		}
	}
	if v := getEnv("SLABCOUNT_SOLVE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			config.Solver.SolveTimeout = d
		} else {
			log.Warn("ignoring invalid env value", "key", "SLABCOUNT_SOLVE_TIMEOUT", "value", v)
		}
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvInt(key string, def int, log *logger.Logger) int {
	v := getEnv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Warn("ignoring invalid env value", "key", key, "value", v)
		return def
	}
	return i
}
