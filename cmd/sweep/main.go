package main

import (
	"os"

	"github.com/JonMunkholm/datasweep/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
