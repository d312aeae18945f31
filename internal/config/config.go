package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/melody-ding/go-mp3vid/internal/batch"
	"github.com/melody-ding/go-mp3vid/internal/logx"
	"github.com/melody-ding/go-mp3vid/internal/processor"
	"github.com/melody-ding/go-mp3vid/internal/render"
)

const envPrefix = "MP3VID"

// Config holds all runtime configuration, loaded from config.yaml and
// MP3VID_* environment variables.
type Config struct {
	InputDir        string        `mapstructure:"input_dir"`
	FrameDir        string        `mapstructure:"frame_dir"`
	FrameRetention  string        `mapstructure:"frame_retention"`
	FontPath        string        `mapstructure:"font_path"`
	FontSize        float64       `mapstructure:"font_size"`
	TextColor       string        `mapstructure:"text_color"`
	BackgroundColor string        `mapstructure:"background_color"`
	Margin          float64       `mapstructure:"margin"`
	FFmpegPath      string        `mapstructure:"ffmpeg_path"`
	FFmpegDir       string        `mapstructure:"ffmpeg_dir"`
	EncodeTimeout   time.Duration `mapstructure:"encode_timeout"`
	VerifyOutput    bool          `mapstructure:"verify_output"`
	SkipExisting    bool          `mapstructure:"skip_existing"`
	FailOnError     bool          `mapstructure:"fail_on_error"`
	ReportPath      string        `mapstructure:"report_path"`

	Ledger struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"ledger"`

	Metrics struct {
		Textfile string `mapstructure:"textfile"`
	} `mapstructure:"metrics"`

	Publish struct {
		Bucket         string `mapstructure:"bucket"`
		Prefix         string `mapstructure:"prefix"`
		Region         string `mapstructure:"region"`
		Endpoint       string `mapstructure:"endpoint"`
		ForcePathStyle bool   `mapstructure:"force_path_style"`
	} `mapstructure:"publish"`

	Log struct {
		Level      string `mapstructure:"level"`
		Format     string `mapstructure:"format"`
		File       string `mapstructure:"file"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
		Compress   bool   `mapstructure:"compress"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	r := render.DefaultOptions()
	p := processor.DefaultSettings()

	v.SetDefault("input_dir", "mp3s")
	v.SetDefault("frame_dir", r.Dir)
	v.SetDefault("frame_retention", batch.RetainKeep)
	v.SetDefault("font_path", "")
	v.SetDefault("font_size", r.FontSize)
	v.SetDefault("text_color", r.TextColor)
	v.SetDefault("background_color", r.BackgroundColor)
	v.SetDefault("margin", r.Margin)
	v.SetDefault("ffmpeg_path", p.FFmpegPath)
	v.SetDefault("ffmpeg_dir", "")
	v.SetDefault("encode_timeout", p.Timeout)
	v.SetDefault("verify_output", false)
	v.SetDefault("skip_existing", false)
	v.SetDefault("fail_on_error", false)
	v.SetDefault("report_path", "")

	v.SetDefault("ledger.path", "")
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.prefix", "")
	v.SetDefault("publish.region", "us-east-1")
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.force_path_style", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", true)
}

// Load reads .env, then the config file, then the environment. An empty
// path looks for config.yaml in the working directory and tolerates its
// absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no run could use.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputDir) == "" {
		return errors.New("input_dir is required")
	}
	switch c.FrameRetention {
	case batch.RetainKeep, batch.RetainDelete, batch.RetainArchive:
	default:
		return fmt.Errorf("frame_retention must be keep, delete or archive, got %q", c.FrameRetention)
	}
	if c.FontSize <= 0 {
		return fmt.Errorf("font_size must be positive, got %v", c.FontSize)
	}
	if c.EncodeTimeout < 0 {
		return fmt.Errorf("encode_timeout must not be negative, got %s", c.EncodeTimeout)
	}
	return nil
}

// ExtendPath appends FFmpegDir to PATH so ffmpeg and ffprobe resolve from it.
func (c *Config) ExtendPath() {
	if c.FFmpegDir == "" {
		return
	}
	cur := os.Getenv("PATH")
	if cur == "" {
		os.Setenv("PATH", c.FFmpegDir)
		return
	}
	os.Setenv("PATH", cur+string(os.PathListSeparator)+c.FFmpegDir)
}

func (c *Config) RenderOptions() render.Options {
	return render.Options{
		Dir:             c.FrameDir,
		FontPath:        c.FontPath,
		FontSize:        c.FontSize,
		TextColor:       c.TextColor,
		BackgroundColor: c.BackgroundColor,
		Margin:          c.Margin,
	}
}

func (c *Config) EncoderSettings() processor.Settings {
	s := processor.DefaultSettings()
	s.FFmpegPath = c.FFmpegPath
	s.Timeout = c.EncodeTimeout
	return s
}

func (c *Config) LogConfig() logx.Config {
	return logx.Config{
		Level:          strings.ToLower(c.Log.Level),
		Format:         strings.ToLower(c.Log.Format),
		FilePath:       c.Log.File,
		FileMaxSizeMB:  c.Log.MaxSizeMB,
		FileMaxBackups: c.Log.MaxBackups,
		FileMaxAgeDays: c.Log.MaxAgeDays,
		FileCompress:   c.Log.Compress,
	}
}

func (c *Config) BatchOptions() batch.Options {
	return batch.Options{
		FrameRetention: c.FrameRetention,
		FrameDir:       c.FrameDir,
		SkipExisting:   c.SkipExisting,
		ReportPath:     c.ReportPath,
	}
}
