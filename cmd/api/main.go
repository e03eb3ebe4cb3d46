package main

import (
	"fmt"
	"os"

	"github.com/metinatakli/seat-reservation-engine/internal/app"
)

func main() {
	err := app.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}
