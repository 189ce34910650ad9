package main

import "github.com/opal-project/opalrunner/internal/cli"

func main() {
	cli.Execute()
}
