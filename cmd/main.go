package main

import (
	"context"
	"os"

	"github.com/flowshot-io/zipdir/pkg/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], nil))
}
