// Command ipo-normalize normalizes raw IPO records from JSON files without
// running the HTTP service.
//
// Usage:
//
//	ipo-normalize normalize --file data/ipos.json [--now 2025-06-10]
//	ipo-normalize buckets --file data/ --now 2025-06-10
//	ipo-normalize export --file data/ipos.json --out ipos.xlsx
package main

import (
	"fmt"
	"os"

	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/sirupsen/logrus"
)

func main() {
	shared.ConfigureLogging(shared.LoggingConfig{Level: "warn", Format: "text"})
	logrus.SetOutput(os.Stderr)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
