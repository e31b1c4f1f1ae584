package main

import (
	"os"

	"github.com/tanpawarit/chative-concierge/cmd"
	_ "github.com/tanpawarit/chative-concierge/pkg/logger/autoload"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
