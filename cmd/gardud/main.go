package main

import (
	"log"
	"os"
)

// logger is the process-wide logger used by every command.
var logger = log.New(os.Stdout, "gardu-backend ", log.LstdFlags)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
