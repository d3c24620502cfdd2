// Command jbridge inspects how JVM classes are exposed to scripts: which
// members a class offers, what a script would read from them, and runs
// main methods on the bundled interpreter.
package main

import "os"

func main() {
	if err := execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
