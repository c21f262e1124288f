// Command storesync is a terminal client for the storefront backend.
//
//	storesync login --phone 01700000000 --password secret
//	export STORESYNC_TOKEN=...
//	storesync catalog --search rice
//	storesync set-qty p1 3
//	storesync orders --status pending
//
// Settings come from a .env file, STORESYNC_* variables, an optional
// --config file and the flags below, in that order.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
