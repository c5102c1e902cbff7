package main

import (
	"os"

	"github.com/australian-passport-office/vds-nc-verify-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
