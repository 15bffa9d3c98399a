// Package logging は zap ロガーの初期化を提供します。
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config はロガーの設定です。Level が空の場合、Dev なら debug、それ以外は info です。
type Config struct {
	Level string
	Dev   bool
}

// level は LOG_LEVEL の値を解釈します。未知の値はエラーにします。
func (c Config) level() (zapcore.Level, error) {
	name := strings.ToLower(strings.TrimSpace(c.Level))
	switch name {
	case "":
		if c.Dev {
			return zapcore.DebugLevel, nil
		}
		return zapcore.InfoLevel, nil
	case "warning":
		name = "warn"
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return lvl, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Level, err)
	}
	return lvl, nil
}

// New は設定に応じた *zap.Logger を返します。
// Dev の場合はコンソール形式、それ以外は JSON で標準出力へ書き出します。
func New(cfg Config) (*zap.Logger, error) {
	lvl, err := cfg.level()
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	if cfg.Dev {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "time"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), lvl)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", "goat-portal")),
	), nil
}
