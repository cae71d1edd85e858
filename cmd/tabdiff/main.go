// Command tabdiff compares tabular files column by column and serves the
// comparison API.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
