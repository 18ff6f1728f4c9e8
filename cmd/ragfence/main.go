package main

import "github.com/ragfence/ragfence/internal/cli"

func main() {
	cli.Execute()
}
