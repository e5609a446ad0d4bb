package config

import (
	"flag"
	"os"
)

// ParseServerFlags parses os.Args[1:] against the sceneserver flag set and
// returns the resolved config path (possibly empty) and debug override.
func ParseServerFlags() (configPath string, debug bool) {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to sceneserver.yaml")
	debugFlag := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(os.Args[1:])
	return *configFlag, *debugFlag
}

// ParseClientFlags parses os.Args[1:] against the sceneviewer flag set and
// returns the resolved config path (possibly empty), the debug override,
// and whether the fault-injection harness was requested in place of the
// normal render loop.
func ParseClientFlags() (configPath string, debug bool, faultTest bool) {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to sceneviewer.yaml")
	debugFlag := fs.Bool("debug", false, "Enable debug logging")
	faultTestFlag := fs.Bool("fault-test", false, "Run the fault-injection harness against a throwaway local content server and exit")
	fs.Parse(os.Args[1:])
	return *configFlag, *debugFlag, *faultTestFlag
}

func applyServerFlags(cfg *ServerConfig, debug bool) {
	if debug {
		cfg.Logging.Level = "debug"
	}
}

func applyClientFlags(cfg *ClientConfig, debug bool) {
	if debug {
		cfg.Logging.Level = "debug"
	}
}
