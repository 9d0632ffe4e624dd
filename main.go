package main

import "github.com/clydetadiwa/folio/cmd"

func main() {
	cmd.Execute()
}
