package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	config, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := NewServer(config)
	if err := server.ListenAndServe(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// loadConfig builds a Config from the command line. A config file given with
// -c is applied first; flags that were set explicitly override it.
func loadConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	cwd, _ := os.Getwd()
	var root, configFile string
	var port int
	fs.StringVar(&root, "r", cwd, "document root directory to serve")
	fs.IntVar(&port, "p", defaultPort, "TCP port to listen on")
	fs.StringVar(&configFile, "c", "", "config file with root=... and port=... lines")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	config := &Config{DocumentRoot: root, Port: port}
	if configFile != "" {
		if err := loadConfigFile(configFile, config); err != nil {
			return nil, err
		}
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "r":
				config.DocumentRoot = root
			case "p":
				config.Port = port
			}
		})
	}

	if err := config.finish(); err != nil {
		return nil, err
	}
	return config, nil
}
