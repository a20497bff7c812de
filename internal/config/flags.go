package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   path of the SQLite ledger file
//	-a string   admin API bind address (e.g., ":5000")
//	-s string   JWT HMAC secret key
//	-l string   limiter script path
//	-t int      limiter timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with the per-command flag sets.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-a", "-s", "-l", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.StorePath, "d", config.StorePath, "path of the ledger store file")
	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run admin API")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LimiterScript, "l", config.LimiterScript, "limiter script path")

	limiterTimeout := fs.Int("t", int(config.LimiterTimeout.Seconds()), "limiter timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.LimiterTimeout = time.Duration(*limiterTimeout) * time.Second
}
