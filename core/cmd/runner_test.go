package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/soulbot/core/config"
	coretelegram "github.com/m3rciful/soulbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct {
	ran    bool
	closed bool
}

func (a *app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func (a *app) Run(ctx context.Context, opts coretelegram.RunOptions) error {
	a.ran = true
	rt := coretelegram.Runtime{}
	if err := opts.OnStart(ctx, rt); err != nil {
		return err
	}
	return opts.OnStop(ctx, rt)
}

func (a *app) Close() error {
	a.closed = true
	return nil
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("SOULBOT_CONFIG", "/env.yaml")

	p, err := ResolveConfigPath(Options{ConfigPath: "/flag.yaml", ConfigEnvVar: "SOULBOT_CONFIG"})
	require.NoError(t, err)
	require.Equal(t, "/flag.yaml", p)

	p, err = ResolveConfigPath(Options{ConfigEnvVar: "SOULBOT_CONFIG", DefaultConfigPath: "/default.yaml"})
	require.NoError(t, err)
	require.Equal(t, "/env.yaml", p)

	t.Setenv("SOULBOT_CONFIG", "")
	p, err = ResolveConfigPath(Options{ConfigEnvVar: "SOULBOT_CONFIG", DefaultConfigPath: "/default.yaml"})
	require.NoError(t, err)
	require.Equal(t, "/default.yaml", p)

	_, err = ResolveConfigPath(Options{ConfigEnvVar: "SOULBOT_CONFIG"})
	require.Error(t, err)
}

func TestRunUsesAppRunnerAndCloses(t *testing.T) {
	a := &app{}
	err := Run(Options{
		ConfigPath:     "cfg.yaml",
		LoadConfig:     func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil },
		Bootstrap:      func(context.Context, ConfigCarrier) (TelegramApp, error) { return a, nil },
		ShutdownLogger: func() error { return nil },
	})
	require.NoError(t, err)
	require.True(t, a.ran)
	require.True(t, a.closed)
}

func TestRunBootstrapFailure(t *testing.T) {
	boom := errors.New("boom")
	err := Run(Options{
		ConfigPath: "cfg.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil },
		Bootstrap:  func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)
}
