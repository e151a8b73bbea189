package main

import (
	"os"

	reactstreamcmder "github.com/easyops/reactstream/cmd/reactstream"
)

func main() {
	cmd := reactstreamcmder.NewReactStreamCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
