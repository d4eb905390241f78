package main

import (
	"context"
	"log"
	"os"

	"github.com/cuongbtq/queuectl/cmd/queuectl/commands"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env file: %v", err)
	}

	if err := commands.NewCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
