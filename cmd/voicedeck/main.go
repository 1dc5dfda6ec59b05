package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString("voicedeck: " + err.Error() + "\n")
		os.Exit(1)
	}
}
