/*
testbed runs the engine with a game that clears the swapchain to a cycling
color. With -headless it renders through the software driver and can dump
the last presented frame as a BMP.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/image/bmp"

	"github.com/spaghettifunk/vkbind/engine"
	"github.com/spaghettifunk/vkbind/engine/core"
	"github.com/spaghettifunk/vkbind/testbed"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML configuration file")
		headless   = flag.Bool("headless", false, "render with the software driver instead of a window")
		frames     = flag.Uint64("frames", 0, "stop after this many frames (0 runs until closed)")
		shaderDir  = flag.String("shaders", "", "directory of SPIR-V blobs to load and watch")
		out        = flag.String("out", "", "headless only: write the last presented frame to this BMP file")
	)
	flag.Parse()

	if err := run(*configPath, *out, engine.Options{
		Headless:  *headless,
		Frames:    *frames,
		ShaderDir: *shaderDir,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "testbed:", err)
		os.Exit(1)
	}
}

func run(configPath, out string, options engine.Options) (err error) {
	config := core.DefaultConfig()
	if configPath != "" {
		if config, err = core.LoadConfig(configPath); err != nil {
			return err
		}
	}

	e, err := engine.New(testbed.NewTestGame(), config, options)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := e.Shutdown(); err == nil {
			err = shutdownErr
		}
	}()
	if err := e.Initialize(); err != nil {
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			e.Stop()
		}
	}()

	if err := e.Run(); err != nil {
		return err
	}
	if out != "" {
		return writeSnapshot(e, out)
	}
	return nil
}

func writeSnapshot(e *engine.Engine, path string) error {
	win := e.SoftWindow()
	if win == nil {
		return fmt.Errorf("%w: -out needs -headless", core.ErrInvalidConfig)
	}
	if err := e.Device().WaitIdle(); err != nil {
		return err
	}
	img := win.Snapshot()
	if img == nil {
		return fmt.Errorf("%w: nothing was presented", core.ErrPrecondition)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	core.LogInfo("wrote %dx%d frame to %s", img.Bounds().Dx(), img.Bounds().Dy(), path)
	return f.Close()
}
