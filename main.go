package main

import (
	"os"
	"os/signal"
	"syscall"
)

func main() {
	app := NewApp()
	app.startup()
	defer app.shutdown()

	// Run until interrupted; the UI shell drives the App methods
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
