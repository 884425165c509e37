// Command auth runs the authcore HTTP service. Configuration is read from the
// environment and an optional .env file.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/nomadpay/authcore/internal/auth/app"
)

func main() {
	showVersion := flag.Bool("version", false, "print the build version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.BuildVersion)
		return
	}

	application, err := app.New(app.LoadConfig())
	if err != nil {
		log.Fatalf("authcore: startup failed: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("authcore: %v", err)
	}
}
