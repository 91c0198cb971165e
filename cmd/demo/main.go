package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"storyreel/demo/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	defaultURL := os.Getenv("ASSEMBLY_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8081"
	}

	baseURL := flag.String("url", defaultURL, "Assembly service base URL")
	id := flag.String("id", "", "Follow an existing assembly instead of submitting one")
	requestFile := flag.String("request", "", "Assembly request JSON to submit with 's'")
	flag.Parse()

	var request []byte
	if *requestFile != "" {
		data, err := os.ReadFile(*requestFile)
		if err != nil {
			log.Fatalf("failed to read request: %v", err)
		}
		request = data
	}
	if *id == "" && request == nil {
		flag.Usage()
		log.Fatal("either --id or --request is required")
	}

	p := tea.NewProgram(tui.NewModel(*baseURL, *id, request), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running demo: %v\n", err)
		os.Exit(1)
	}
}
