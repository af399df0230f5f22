// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
/*

Soapkit inspects a remote WSDL and prints a human-readable report of its
service, endpoints and operations.

Usage: soapkit [options] https://example.com/service?wsdl

	-timeout duration
	      HTTP timeout for fetching the WSDL and its imports (default 30s)
	-v    Shows soapkit version

*/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/hooklift/soapkit/client"
)

// Version is initialized in compilation time by go build.
var Version string

var vers = flag.Bool("v", false, "Shows soapkit version")
var timeout = flag.Duration("timeout", 30*time.Second, "HTTP timeout for fetching the WSDL and its imports")

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stdout)
	log.SetPrefix("🧼 ")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] https://example.com/service?wsdl\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	if *vers {
		log.Println(Version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := describe(strings.TrimSpace(args[0])); err != nil {
		log.Fatalln(err)
	}
}

func describe(wsdlURL string) error {
	c, err := client.New(wsdlURL, client.Options{Timeout: *timeout})
	if err != nil {
		return err
	}

	fmt.Print(c.GenerateServiceReport())
	return nil
}
