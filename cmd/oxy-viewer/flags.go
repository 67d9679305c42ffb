package main

import (
	"github.com/urfave/cli"

	"github.com/Carmen-Shannon/oxy-viewer/engine/logger"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-viewer/viewer"
)

func flags() []cli.Flag {
	d := viewer.DefaultConfig()
	return []cli.Flag{
		cli.StringFlag{
			Name:   "assets, a",
			Value:  d.AssetsDir,
			Usage:  "directory holding models/, skybox/ and hdr/",
			EnvVar: "OXY_ASSETS",
		},
		cli.IntFlag{
			Name:   "width",
			Value:  d.Width,
			Usage:  "window width",
			EnvVar: "OXY_WIDTH",
		},
		cli.IntFlag{
			Name:   "height",
			Value:  d.Height,
			Usage:  "window height",
			EnvVar: "OXY_HEIGHT",
		},
		cli.StringFlag{
			Name:   "backend",
			Value:  d.Backend.String(),
			Usage:  "renderer backend: auto, wgpu or gl",
			EnvVar: "OXY_BACKEND",
		},
		cli.StringFlag{
			Name:   "log-level",
			Value:  "info",
			Usage:  "minimum log level (debug, info, warn, error)",
			EnvVar: "OXY_LOG_LEVEL",
		},
		cli.BoolFlag{
			Name:   "dev-log",
			Usage:  "human-readable console logging",
			EnvVar: "OXY_DEV_LOG",
		},
		cli.BoolFlag{
			Name:   "profile",
			Usage:  "log frame rate and heap statistics",
			EnvVar: "OXY_PROFILE",
		},
		cli.BoolFlag{
			Name:   "force-low-end",
			Usage:  "use the low-end performance profile",
			EnvVar: "OXY_FORCE_LOW_END",
		},
		cli.BoolTFlag{
			Name:   "vsync",
			Usage:  "present once per display refresh (--vsync=false uncaps the frame rate)",
			EnvVar: "OXY_VSYNC",
		},
	}
}

// parseConfig reads the viewer and logger configuration from the parsed flags.
func parseConfig(c *cli.Context) (viewer.Config, logger.Config, error) {
	backend, err := renderer.ParsePreference(c.String("backend"))
	if err != nil {
		return viewer.Config{}, logger.Config{}, err
	}
	cfg := viewer.DefaultConfig()
	cfg.AssetsDir = c.String("assets")
	cfg.Width = c.Int("width")
	cfg.Height = c.Int("height")
	cfg.Backend = backend
	cfg.Profile = c.Bool("profile")
	cfg.ForceLowEnd = c.Bool("force-low-end")
	cfg.VSync = c.BoolT("vsync")

	return cfg, logger.Config{
		Level:       c.String("log-level"),
		Development: c.Bool("dev-log"),
	}, nil
}
