// Command ipqc inspects the IPQC checklist catalog offline and drives audit
// sessions on an ipqc-server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
