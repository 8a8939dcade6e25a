package main

import (
	"os"

	adpulsecmder "github.com/papercomputeco/adpulse/cmd/adpulse"
)

func main() {
	cmd := adpulsecmder.NewAdpulseCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
