package main

import "github.com/OpenTraceLab/bsio/cmd/bscan/cmd"

func main() {
	cmd.Execute()
}
