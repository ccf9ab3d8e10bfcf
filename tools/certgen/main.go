// Command certgen writes a local CA and a table server certificate signed
// by it. Point the server's -tls-cert/-tls-key at server.crt/server.key and
// the client's db.ca_cert setting at ca.crt.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/GophLibrary/internal/certgen"
)

type options struct {
	dir      string
	hosts    []string
	validFor time.Duration
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	var o options
	var hosts string
	fs.StringVar(&o.dir, "out", "certs", "output directory")
	fs.StringVar(&hosts, "hosts", "localhost,127.0.0.1", "comma separated server names and IPs")
	fs.DurationVar(&o.validFor, "valid-for", 365*24*time.Hour, "server certificate lifetime")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	for _, h := range strings.Split(hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			o.hosts = append(o.hosts, h)
		}
	}
	if len(o.hosts) == 0 {
		return o, fmt.Errorf("no hosts given")
	}
	return o, nil
}

func run(o options) error {
	ca, err := certgen.NewCA("GophLibrary CA", 10*365*24*time.Hour)
	if err != nil {
		return err
	}
	if err := ca.WriteFiles(filepath.Join(o.dir, "ca.crt"), filepath.Join(o.dir, "ca.key")); err != nil {
		return err
	}
	server, err := certgen.NewServer(o.hosts, o.validFor, ca)
	if err != nil {
		return err
	}
	return server.WriteFiles(filepath.Join(o.dir, "server.crt"), filepath.Join(o.dir, "server.key"))
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Certificates generated into ./%s\n", o.dir)
}
