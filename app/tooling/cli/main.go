// Program cli is the operator tool for a powchain network.
package main

import "github.com/ardanlabs/powchain/app/tooling/cli/cmd"

func main() {
	cmd.Execute()
}
