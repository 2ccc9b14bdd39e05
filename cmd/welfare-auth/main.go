// Command welfare-auth runs the authentication gateway and a small client
// that keeps its session in the OS keyring.
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
