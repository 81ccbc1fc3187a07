package main

import (
	"os"

	"github.com/pfrederiksen/meetup-events/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
