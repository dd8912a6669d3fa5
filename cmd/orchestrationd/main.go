package main

import (
	"fmt"
	"os"

	"github.com/cosmos/ibc-orchestration/modules/apps/orchestration/client/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
