// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gogpu/compositor"
)

// Environment variables read before flags are parsed.
const (
	envNodeDir   = "COMPOSITOR_NODE_DIR"
	envShaderDir = "COMPOSITOR_SHADER_DIR"
	envTexture   = "COMPOSITOR_DEFAULT_TEXTURE"
	envBackend   = "COMPOSITOR_BACKEND"
	envLogFile   = "COMPOSITOR_LOG_FILE"
	envLogLevel  = "COMPOSITOR_LOG_LEVEL"
)

// Rotation limits of the log file.
const (
	logMaxSizeMB  = 20
	logMaxBackups = 3
	logMaxAgeDays = 14
)

// settings is the command configuration: environment first, flags on top.
type settings struct {
	nodeDir   string
	shaderDir string
	texture   string
	backend   string
	logFile   string
	logLevel  string
}

func settingsFromEnv(getenv func(string) string) settings {
	s := settings{
		nodeDir:   getenv(envNodeDir),
		shaderDir: getenv(envShaderDir),
		texture:   getenv(envTexture),
		backend:   getenv(envBackend),
		logFile:   getenv(envLogFile),
		logLevel:  getenv(envLogLevel),
	}
	if s.backend == "" {
		s.backend = "auto"
	}
	if s.logLevel == "" {
		s.logLevel = "warn"
	}
	return s
}

// register binds the settings to global flags, using the current values as
// defaults.
func (s *settings) register(fs *flag.FlagSet) {
	fs.StringVar(&s.nodeDir, "nodes", s.nodeDir, "node descriptor `dir`ectory (empty for built-ins only) ["+envNodeDir+"]")
	fs.StringVar(&s.shaderDir, "shaders", s.shaderDir, "`dir`ectory descriptor shader paths are resolved in ["+envShaderDir+"]")
	fs.StringVar(&s.texture, "texture", s.texture, "default texture `path` ["+envTexture+"]")
	fs.StringVar(&s.backend, "backend", s.backend, "GPU backend: auto, vulkan, metal, dx12, gl, software ["+envBackend+"]")
	fs.StringVar(&s.logFile, "log-file", s.logFile, "write logs to a rotated `file` instead of stderr ["+envLogFile+"]")
	fs.StringVar(&s.logLevel, "log-level", s.logLevel, "debug, info, warn, error or off ["+envLogLevel+"]")
}

// options translates the settings into runtime options.
func (s settings) options() []compositor.Option {
	var opts []compositor.Option
	if s.shaderDir != "" {
		opts = append(opts, compositor.WithShaderFS(os.DirFS(s.shaderDir)))
	}
	if s.nodeDir != "" {
		opts = append(opts, compositor.WithNodeDir(s.nodeDir))
	}
	if s.texture != "" {
		opts = append(opts, compositor.WithDefaultTexture(s.texture))
	}
	return opts
}

// logger builds the command logger. The returned func closes the log file.
func (s settings) logger(stderr io.Writer) (*slog.Logger, func(), error) {
	if strings.EqualFold(s.logLevel, "off") {
		return discardLogger(), func() {}, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.logLevel)); err != nil {
		return nil, nil, fmt.Errorf("log level %q: %w", s.logLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if s.logFile == "" {
		return slog.New(slog.NewTextHandler(stderr, opts)), func() {}, nil
	}
	w := &lumberjack.Logger{
		Filename:   s.logFile,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		Compress:   true,
	}
	return slog.New(slog.NewTextHandler(w, opts)), func() { _ = w.Close() }, nil
}
