package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	rawslog "log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackalope/jackalope.go/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	LogText         = "Test Log Value"
	CustomFieldName = "SomeKey"
	CustomFieldVal  = "SomeVal"
)

type testLogJSON struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Msg       string    `json:"msg"`
	Message   string    `json:"message"`
	CustomVal any       `json:"SomeKey"`
}

type testMethod struct {
	fn    func(msg string, args ...any)
	level string
}

func methods(l logger.Logger) []testMethod {
	return []testMethod{
		{fn: l.Error, level: "error"},
		{fn: l.Warn, level: "warn"},
		{fn: l.Info, level: "info"},
		{fn: l.Debug, level: "debug"},
	}
}

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.NewBuild().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)

	require.Equal(t, 0, buff.Len())
	templogger.Logger.Info().Msg("Test")
	require.Contains(t, buff.String(), "Test")
}

func TestZerologLogger(t *testing.T) {
	buffer := bytes.NewBuffer([]byte{})
	l, err := logger.NewBuild().FromBuffer(buffer).Make()
	require.NoError(t, err)

	for _, v := range methods(l) {
		t.Run(fmt.Sprintf("testing %s", v.level), func(t *testing.T) {
			buffer.Reset()
			v.fn(LogText, CustomFieldName, CustomFieldVal)

			got := new(testLogJSON)
			require.NoError(t, json.Unmarshal(buffer.Bytes(), got))
			require.Equal(t, v.level, got.Level)
			require.Equal(t, LogText, got.Message)
			require.Equal(t, CustomFieldVal, got.CustomVal)
		})
	}
}

func TestZerologLevelAndErrors(t *testing.T) {
	buffer := bytes.NewBuffer([]byte{})
	l, err := logger.NewBuild().FromBuffer(buffer).Level(zerolog.WarnLevel).Make()
	require.NoError(t, err)

	l.Debug("hidden")
	require.Equal(t, 0, buffer.Len())

	l.Error("failed", "error", errors.New("boom"), "dangling")
	require.Contains(t, buffer.String(), `"error":"boom"`)
	require.Contains(t, buffer.String(), `"!BADKEY":"dangling"`)
}

func TestLogToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jackalope.log")
	l, err := logger.NewBuild().FromPath(path).Make()
	require.NoError(t, err)
	require.NotNil(t, l.LogFile)

	l.Info("to file")
	require.NoError(t, l.Close())
}

func TestSlogLogger(t *testing.T) {
	buffer := bytes.NewBuffer([]byte{})

	// level needs to be set to debug for log all
	handler := rawslog.NewJSONHandler(buffer, &rawslog.HandlerOptions{Level: rawslog.LevelDebug})
	l := logger.New(handler)

	for _, v := range methods(l) {
		t.Run(fmt.Sprintf("testing %s", v.level), func(t *testing.T) {
			buffer.Reset()
			v.fn(LogText, CustomFieldName, CustomFieldVal)

			got := new(testLogJSON)
			require.NoError(t, json.Unmarshal(buffer.Bytes(), got))
			require.Equal(t, strings.ToUpper(v.level), got.Level)
			require.Equal(t, LogText, got.Msg)
			require.Equal(t, CustomFieldVal, got.CustomVal)
		})
	}
}

func TestNop(t *testing.T) {
	l := logger.Nop()
	l.Error("nothing")
	l.Debug("nothing")
}
