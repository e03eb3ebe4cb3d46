package main

import (
	"fmt"
	"os"

	"github.com/metinatakli/seat-reservation-engine/internal/app"
)

func main() {
	err := app.RunWorker()
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}
