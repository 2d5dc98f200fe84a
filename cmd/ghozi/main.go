package main

import "github.com/ghozitech/ledger/internal/cli"

func main() {
	cli.Execute()
}
