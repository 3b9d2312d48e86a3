package main

import (
	"github.com/jbonilla-tao/sn35-vali-burn/internal/cli"
)

func main() {
	cli.Execute()
}
