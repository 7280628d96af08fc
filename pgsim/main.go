// Command pgsim runs a simulated chip whose engines are power gated by the
// controllers of package pg.
package main

import "github.com/sarchlab/lpwr/pgsim/cmd"

func main() {
	cmd.Execute()
}
