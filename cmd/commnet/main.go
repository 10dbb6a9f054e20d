// Command commnet inspects communications network scenario files offline.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "commnet: %v\n", err)
		os.Exit(1)
	}
}
