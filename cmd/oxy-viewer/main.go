package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-viewer/engine/host"
	"github.com/Carmen-Shannon/oxy-viewer/engine/logger"
	"github.com/Carmen-Shannon/oxy-viewer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-viewer/engine/window"
	"github.com/Carmen-Shannon/oxy-viewer/viewer"
)

// GLFW and both graphics APIs must be driven from the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	app := cli.NewApp()
	app.Name = "oxy-viewer"
	app.Usage = "view a glTF model with WebGPU, falling back to OpenGL"
	app.Version = "0.1.0"
	app.Flags = flags()
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, logCfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	if err := logger.Init(logCfg); err != nil {
		return err
	}
	defer logger.Sync()

	h := host.NewHost(host.WithLogger(logger.Log))

	// a window that cannot be created leaves the surface unregistered; the viewer reports it
	api := window.ClientAPINone
	if cfg.Backend == renderer.PreferGL {
		api = window.ClientAPIOpenGL
	}
	w, err := window.NewWindow(
		window.WithTitle(cfg.Title),
		window.WithWidth(cfg.Width),
		window.WithHeight(cfg.Height),
		window.WithClientAPI(api),
	)
	if err != nil {
		logger.Log.Error("create window", zap.Error(err))
	} else {
		h.Register(viewer.SurfaceID, w)
	}

	if err := viewer.Run(cfg, h); err != nil {
		return cli.NewExitError("", 1)
	}
	return nil
}
