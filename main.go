// Command sieve runs the classification gate and batch indexer for the
// search pipeline, plus read-only index utilities.
package main

import "github.com/sievesearch/sieve/cmd"

func main() {
	cmd.Execute()
}
