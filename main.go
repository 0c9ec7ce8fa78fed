//	@title			mgserver API
//	@version		1.0
//	@description	Credential issuance and access control backend for device-class clients

//	@contact.name	API Support
//	@contact.url	https://github.com/Avamagic/mgserver-web-api

//	@host		localhost:8080
//	@BasePath	/

//	@securityDefinitions.apikey	OAuth
//	@in							header
//	@name						Authorization
//	@description				OAuth protocol parameters (consumer key, token, nonce, timestamp, signature)

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Avamagic/mgserver-web-api/internal/bootstrap"
	"github.com/Avamagic/mgserver-web-api/internal/config"
	"github.com/Avamagic/mgserver-web-api/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "server":
		runServer()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("Credential issuance and access control backend")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the API server")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	cfg := config.Load()

	if cfg.OTPSecret == "" {
		log.Println("OTP_SECRET is empty; the seeding endpoint will reject every request")
	}

	if err := bootstrap.Run(cfg); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}
