// FilePath: cmd/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tm "github.com/buger/goterm"
	"github.com/jodok/bees/internal/cli"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	// Initialize version info
	nuts.InitVersion()

	cli.Banner = func() {
		ClearConsole()
		DrawLogo()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		nuts.L.Errorf("[Main] %v", err)
		os.Exit(1)
	}
}

// ClearConsole clears the console screen.
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		"    __                  ",
		"   / /_  ___  ___  _____",
		"  / __ \\/ _ \\/ _ \\/ ___/",
		" / /_/ /  __/  __(__  ) ",
		"/_.___/\\___/\\___/____/  ",
		"........................  " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
