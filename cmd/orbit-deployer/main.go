// Command orbit-deployer deploys and administers Arbitrum Orbit chains.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
