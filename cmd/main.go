package main

import (
	"github.com/BetterCallFirewall/surfacerecon/internal/cli"
)

func main() {
	cli.Execute()
}
