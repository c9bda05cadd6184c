package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`

	// FilePath enables a rotating JSON log file next to the stdout stream.
	FilePath       string `split_words:"true"`
	FileMaxSizeMB  int    `envconfig:"FILE_MAX_SIZE_MB" default:"50"`
	FileMaxBackups int    `split_words:"true" default:"3"`
	FileMaxAgeDays int    `split_words:"true" default:"14"`
	FileCompress   bool   `split_words:"true" default:"true"`
}

var DefaultConfig = &Config{
	Debug:        false,
	PrettyFormat: false,
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

func Init(opts ...Config) {
	conf := safe(opts...)

	var stdout io.Writer = os.Stdout
	if conf.PrettyFormat {
		stdout = zerolog.NewConsoleWriter()
	}

	out := stdout
	if path := strings.TrimSpace(conf.FilePath); path != "" {
		out = zerolog.MultiLevelWriter(stdout, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    conf.FileMaxSizeMB,
			MaxBackups: conf.FileMaxBackups,
			MaxAge:     conf.FileMaxAgeDays,
			Compress:   conf.FileCompress,
		})
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	if conf.Debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	log.Logger = log.Logger.With().Caller().Stack().Logger()
}
