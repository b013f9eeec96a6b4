package main

import "alertx/internal/cli"

func main() {
	cli.Execute()
}
