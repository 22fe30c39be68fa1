package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/ligun0805/multisend/cmd/multisend/commands"
)

func main() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	if err := commands.Execute(); err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
