package log

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

const (
	LevelFlagName  = "log.level"
	FormatFlagName = "log.format"
	ColorFlagName  = "log.color"
	PidFlagName    = "log.pid"
)

func prefixEnvVars(prefix string, name string) []string {
	return []string{prefix + "_" + name}
}

// CLIFlags creates the logging flags, with env vars prefixed by envPrefix.
func CLIFlags(envPrefix string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     LevelFlagName,
			Usage:    "The lowest log level that will be output. One of trace, debug, info, warn, error, crit",
			Value:    "info",
			EnvVars:  prefixEnvVars(envPrefix, "LOG_LEVEL"),
			Category: "LOGGING",
		},
		&cli.StringFlag{
			Name:     FormatFlagName,
			Usage:    "Format the log output. Supported formats: 'text', 'terminal', 'logfmt', 'json'",
			Value:    string(FormatText),
			EnvVars:  prefixEnvVars(envPrefix, "LOG_FORMAT"),
			Category: "LOGGING",
		},
		&cli.BoolFlag{
			Name:     ColorFlagName,
			Usage:    "Color the log output if in terminal mode",
			Value:    isatty.IsTerminal(os.Stdout.Fd()),
			EnvVars:  prefixEnvVars(envPrefix, "LOG_COLOR"),
			Category: "LOGGING",
		},
		&cli.BoolFlag{
			Name:     PidFlagName,
			Usage:    "Show pid in the log",
			EnvVars:  prefixEnvVars(envPrefix, "LOG_PID"),
			Category: "LOGGING",
		},
	}
}

// ReadCLIConfig reads the logging flags of the current command.
func ReadCLIConfig(ctx *cli.Context) (CLIConfig, error) {
	cfg := DefaultCLIConfig()
	lvl, err := ParseLevel(ctx.String(LevelFlagName))
	if err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", LevelFlagName, err)
	}
	cfg.Level = lvl
	if err := cfg.Format.Set(ctx.String(FormatFlagName)); err != nil {
		return cfg, err
	}
	if ctx.IsSet(ColorFlagName) {
		cfg.Color = ctx.Bool(ColorFlagName)
	}
	cfg.Pid = ctx.Bool(PidFlagName)
	return cfg, nil
}
