package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: database.path is read from
// MISSIV_DATABASE_PATH.
const EnvPrefix = "MISSIV"

// Loader resolves a Config from defaults, an optional YAML file and the
// environment, in increasing order of precedence.
type Loader struct {
	v          *viper.Viper
	configFile string
}

func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// SetConfigFile pins the config file. A pinned file that cannot be read is
// an error; a missing file on the search path is not.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// ConfigFileUsed reports which file Load read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	for key, value := range settingKeys(reflect.ValueOf(cfg).Elem(), "") {
		l.v.SetDefault(key, value)
		if err := l.v.BindEnv(key, envName(key)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := l.readFile(); err != nil {
		return nil, err
	}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// MISSIV_DIRECTORY="0612345678=Front desk,0698765432=Billing"
	if raw := os.Getenv(EnvPrefix + "_DIRECTORY"); raw != "" {
		entries, err := ParseDirectory(raw)
		if err != nil {
			return nil, fmt.Errorf("%s_DIRECTORY: %w", EnvPrefix, err)
		}
		if cfg.Directory == nil {
			cfg.Directory = make(map[string]string, len(entries))
		}
		maps.Copy(cfg.Directory, entries)
	}

	for _, p := range []*string{&cfg.Global.DataDir, &cfg.Global.ConfigDir, &cfg.Database.Path, &cfg.Logging.File} {
		*p = expandHome(*p)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (l *Loader) readFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			l.v.AddConfigPath(filepath.Join(xdg, "missiv"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "missiv"))
		}
		l.v.AddConfigPath(".")
	}

	err := l.v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || (l.configFile == "" && errors.As(err, &notFound)) {
		return nil
	}
	return fmt.Errorf("read config file: %w", err)
}

// settingKeys flattens the scalar fields of a config struct into dotted
// viper keys using their mapstructure tags. Map fields are skipped; they have
// no single environment variable.
func settingKeys(v reflect.Value, prefix string) map[string]any {
	keys := make(map[string]any)
	t := v.Type()
	for i := range t.NumField() {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("mapstructure"), ",")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + tag
		field := v.Field(i)
		switch field.Kind() {
		case reflect.Struct:
			maps.Copy(keys, settingKeys(field, key+"."))
		case reflect.Map:
		default:
			keys[key] = field.Interface()
		}
	}
	return keys
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// Load reads the config at path, or searches the default locations when
// path is empty.
func Load(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadFromFile loads the config at path, failing if it cannot be read.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	return Load(path)
}

// ParseDirectory parses comma separated desk=name pairs. Blank entries are
// ignored.
func ParseDirectory(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desk, name, ok := strings.Cut(part, "=")
		desk, name = strings.TrimSpace(desk), strings.TrimSpace(name)
		if !ok || desk == "" || name == "" {
			return nil, fmt.Errorf("invalid directory entry %q (want desk=name)", part)
		}
		out[desk] = name
	}
	return out, nil
}
