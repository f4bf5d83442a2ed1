package main

import "github.com/adrianmusante/subtitle-tools/internal/cli"

func main() {
	cli.Execute()
}
