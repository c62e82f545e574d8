// FilePath: cmd/main.go
package main

import (
	"fmt"
	"log"
	"os"

	tm "github.com/buger/goterm"
	"github.com/spoilsense/spoilsense/internal/config"
	"github.com/spoilsense/spoilsense/internal/server"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	// Clear console and draw logo
	ClearConsole()
	DrawLogo()
	// Initialize version info
	nuts.InitVersion()
	nuts.L.Infof("[Main] Starting SpoilSense Hub v%s", nuts.GetVersion())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	nuts.SetLoglevel(cfg.Monitoring.LogLevel, "spoilsense", false, "")

	// Create and start server
	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}

// ClearConsole clears the console screen and draws the logo.
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		"   _____             _ _______                     ",
		"  / ___/____  ____  (_) / ___/___  ____  ________  ",
		"  \\__ \\/ __ \\/ __ \\/ / /\\__ \\/ _ \\/ __ \\/ ___/ _ \\ ",
		" ___/ / /_/ / /_/ / / /___/ /  __/ / / (__  )  __/ ",
		"/____/ .___/\\____/_/_//____/\\___/_/ /_/____/\\___/  ",
		"    /_/                                            ",
		"...................................................  " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
