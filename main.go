/*
Hello triangle: opens a window and draws one red triangle every frame.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/hellotriangle/engine"
	"github.com/spaghettifunk/hellotriangle/engine/core"
)

func main() {
	config, err := engine.LoadApplicationConfig(engine.DefaultConfigFile)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}

	e, err := engine.New(config)
	if err != nil {
		core.LogFatal("failed to create engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		if serr := e.Shutdown(); serr != nil {
			core.LogError("shutdown after failed initialization: %s", serr)
		}
		core.LogFatal("failed to initialize: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		e.Stop()
	}()

	// run engine
	if err := e.Run(); err != nil {
		core.LogError("engine stopped: %s", err)
	}
	if err := e.Shutdown(); err != nil {
		core.LogFatal("failed to shut down: %s", err)
	}
}
