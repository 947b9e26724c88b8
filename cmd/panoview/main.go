// Command panoview views street-level panoramas and exports their imagery and coverage.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
