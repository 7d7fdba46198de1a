// Command directory runs the employee directory service and its operator
// tooling: bulk CSV import, token minting and an event tail.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
