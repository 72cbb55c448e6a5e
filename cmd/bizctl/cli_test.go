package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/config"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	logger = zap.NewNop()
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	return cmd, out
}

func TestCPFValidate(t *testing.T) {
	cmd, out := newTestCmd()

	err := runCPFValidate(cmd, []string{"529.982.247-25", "11144477735"})
	require.NoError(t, err)
	assert.Equal(t, "529.982.247-25: valid\n11144477735: valid\n", out.String())
}

func TestCPFValidate_ReportsInvalid(t *testing.T) {
	cmd, out := newTestCmd()

	err := runCPFValidate(cmd, []string{"52998224725", "111.111.111-11", "123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 CPFs invalid")
	assert.Contains(t, out.String(), "111.111.111-11: invalid")
	assert.Contains(t, out.String(), "123: invalid")
}

func TestCPFFormat(t *testing.T) {
	cmd, out := newTestCmd()

	require.NoError(t, runCPFFormat(cmd, []string{"52998224725"}))
	assert.Equal(t, "529.982.247-25\n", out.String())

	cmd, out = newTestCmd()
	err := runCPFFormat(cmd, []string{"52998224724"})
	require.Error(t, err)
	assert.Empty(t, out.String())
}

func TestParseReason(t *testing.T) {
	tests := []struct {
		in      string
		want    model.BackupReason
		wantErr bool
	}{
		{in: "manual", want: model.BackupReasonManual},
		{in: " AUTO ", want: model.BackupReasonAuto},
		{in: "pre-restore", wantErr: true},
		{in: "import", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseReason(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	def := time.Date(2024, 3, 10, 1, 30, 0, 0, time.UTC)

	got, err := parseDate("", loc, def)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Day())

	got, err = parseDate("2024-02-29", loc, def)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, loc), got)

	_, err = parseDate("29/02/2024", loc, def)
	assert.Error(t, err)
}

func TestParsePeriod(t *testing.T) {
	pt, err := parsePeriod("weekly")
	require.NoError(t, err)
	assert.Equal(t, model.PeriodWeekly, pt)

	_, err = parsePeriod("daily")
	assert.Error(t, err)
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "status"},
		{"backup", "create"},
		{"backup", "restore-latest"},
		{"backup", "prune"},
		{"report", "chart"},
		{"cpf", "format"},
	} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}
}

func TestNewLogger_FollowsConfig(t *testing.T) {
	cfg := &config.Config{Environment: "production", LogLevel: "warn"}

	l, err := newLogger(cfg, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = newLogger(cfg, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(&config.Config{Environment: "development", LogLevel: "loud"}, false)
	assert.Error(t, err)
}
