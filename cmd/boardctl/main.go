package main

import (
	"github.com/tkc/boardctl/internal/cli"
)

func main() {
	cli.Execute()
}
