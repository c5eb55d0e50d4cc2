package main

import "nyaya/internal/cli"

func main() {
	cli.Execute()
}
