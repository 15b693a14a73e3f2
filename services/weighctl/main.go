package main

import "github.com/tbs-timbangan/weighbridge/services/weighctl/commands"

func main() {
	commands.Execute()
}
