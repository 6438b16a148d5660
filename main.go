package main

import "github.com/odcpw/berabundle-sub001/cmd"

func main() {
	cmd.Execute()
}
