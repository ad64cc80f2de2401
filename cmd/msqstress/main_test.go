// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"code.hybscloud.com/msq"
	"code.hybscloud.com/msq/internal/stress"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cmdStress()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStressCommandPasses(t *testing.T) {
	if msq.RaceEnabled {
		t.Skip("skip: payloads are published through atomix links")
	}
	out, err := execute(t, "--producers", "4", "--consumers", "2", "--items", "200", "--reclamation", "hazard", "--rounds", "2")
	require.NoError(t, err)
	require.Contains(t, out, "PASS 4P/2C x 200 hazard/spinyield")
}

func TestStressCommandRejectsUnbalanced(t *testing.T) {
	_, err := execute(t, "--producers", "3", "--items", "5", "--consumers", "2")
	require.ErrorIs(t, err, stress.ErrUnbalanced)
}

func TestStressCommandRejectsUnknownScheme(t *testing.T) {
	_, err := execute(t, "--reclamation", "refcount")
	require.ErrorIs(t, err, stress.ErrInvalidConfig)
}

func TestStressCommandFlagsOverrideFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "scenario.yml")
	require.NoError(t, os.WriteFile(file, []byte("producers: 2\nconsumers: 2\nitems: 50\nwait: yield\n"), 0o644))

	cmd := cmdStress()
	require.NoError(t, cmd.ParseFlags([]string{"--items", "70", "--timeout", "5s"}))
	cfg, err := (&overrides{items: 70, timeout: 5 * time.Second}).config(cmd, []string{file})
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Producers)
	require.Equal(t, 70, cfg.Items)
	require.Equal(t, "yield", cfg.Wait)
	require.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestStressCommandTooManyArgs(t *testing.T) {
	_, err := execute(t, "a.yml", "b.yml")
	require.Error(t, err)
}
