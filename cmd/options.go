package main

import (
	"fmt"

	goFlags "github.com/jessevdk/go-flags"
)

// Options are the command-line options.  They can also be read from an INI
// file, see [Options.Config].
type Options struct {
	// Config is the path to the INI file with the options.  The command-line
	// options take precedence.
	Config string `short:"c" long:"config" description:"Path to the INI configuration file." no-ini:"true"`

	// FilterLists are the paths to the filter lists.
	FilterLists []string `short:"f" long:"filter" description:"Path to the filter list. Can be specified multiple times."`

	// Suffixes is the path to the JSON public suffix dataset.
	Suffixes string `short:"s" long:"suffixes" description:"Path to the JSON public suffix dataset. If not set, the built-in list is used."`

	// URLs are the URLs to check.
	URLs []string `short:"u" long:"url" description:"URL to check. Can be specified multiple times. If not set, queries are read from stdin." no-ini:"true"`

	// Document is the domain of the document the URLs are loaded from.
	Document string `short:"d" long:"document" description:"Domain of the document that makes the requests." no-ini:"true"`

	// Type is the content type of the requests.
	Type string `short:"t" long:"type" description:"Content type of the requests." default:"other"`

	// Sitekey is the sitekey of the document.
	Sitekey string `short:"k" long:"sitekey" description:"Sitekey of the document."`

	// SpecificOnly makes the matcher ignore generic blocking filters.
	SpecificOnly bool `long:"specific-only" description:"Ignore generic blocking filters." optional:"yes" optional-value:"true"`

	// Search makes the command print all matching filters.
	Search bool `long:"search" description:"Print all matching filters." optional:"yes" optional-value:"true"`

	// CacheSize is the number of cached matching results.
	CacheSize int `long:"cache-size" description:"Number of cached matching results." default:"10000"`

	// Verbose enables debug logging.
	Verbose bool `short:"v" long:"verbose" description:"Verbose output (optional)." optional:"yes" optional-value:"true"`

	// LogOutput is the path to the log file.
	LogOutput string `short:"o" long:"output" description:"Path to the log file. If not set, it writes to stderr." default:""`

	// ListenAddr is the address of the proxy.  The proxy is only started if
	// it's set.
	ListenAddr string `short:"l" long:"listen" description:"Listen address of the filtering proxy. If set, the proxy is started."`

	// ListenPort is the port of the proxy.
	ListenPort int `short:"p" long:"port" description:"Listen port of the filtering proxy." default:"8080"`

	// CACertPath is the path to the root certificate for MITM.
	CACertPath string `long:"ca-cert" description:"Path to a file with the root certificate. Enables HTTPS filtering."`

	// CAKeyPath is the path to the private key of the root certificate.
	CAKeyPath string `long:"ca-key" description:"Path to a file with the CA private key."`

	// ProxyUser is the username for the proxy authorization.
	ProxyUser string `long:"proxy-user" description:"Proxy auth username. If specified, proxy authorization is required."`

	// ProxyPassword is the password for the proxy authorization.
	ProxyPassword string `long:"proxy-password" description:"Proxy auth password."`
}

// parseOptions parses the command-line arguments and the configuration file
// they refer to.
func parseOptions(args []string) (opts *Options, err error) {
	opts = &Options{}
	_, err = goFlags.NewParser(opts, goFlags.Default).ParseArgs(args)
	if err != nil || opts.Config == "" {
		return opts, err
	}

	conf := opts.Config

	opts = &Options{}
	parser := goFlags.NewParser(opts, goFlags.Default)
	err = goFlags.NewIniParser(parser).ParseFile(conf)
	if err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", conf, err)
	}

	// Parse the arguments again so that they override the file.
	_, err = parser.ParseArgs(args)

	return opts, err
}
