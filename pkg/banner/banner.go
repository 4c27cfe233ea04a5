package banner

import (
	"fmt"

	"hiretalk/pkg/config"
)

const banner = `
██╗  ██╗██╗██████╗ ███████╗████████╗ █████╗ ██╗     ██╗  ██╗
██║  ██║██║██╔══██╗██╔════╝╚══██╔══╝██╔══██╗██║     ██║ ██╔╝
███████║██║██████╔╝█████╗     ██║   ███████║██║     █████╔╝
██╔══██║██║██╔══██╗██╔══╝     ██║   ██╔══██║██║     ██╔═██╗
██║  ██║██║██║  ██║███████╗   ██║   ██║  ██║███████╗██║  ██╗
╚═╝  ╚═╝╚═╝╚═╝  ╚═╝╚══════╝   ╚═╝   ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`

// PrintWithEff prints the startup banner with the effective runtime
// configuration.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config source: %s\n", src)
	if eff.Config != nil && eff.Config.Archive.Enabled {
		fmt.Printf("Archive sweep: %s\n", eff.Config.Archive.Cron)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/conversations - Create a conversation")
	fmt.Println("POST /v1/conversations/{id}/messages - Append a message")
	fmt.Println("GET  /v1/conversations/{id}/messages?since=<seq> - List messages")
	fmt.Println("POST /v1/conversations/{id}/read - Mark read position")
	fmt.Println("GET  /v1/notifications - Per-user notification feed")
	fmt.Println("GET  /docs/ - API documentation, /metrics - Prometheus")
}
