package main

import "github.com/openlabel/openlabel/internal/cmd"

func main() {
	cmd.Execute()
}
