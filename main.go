package main

import "github.com/cn-vhql/AS-SKILLS/cmd"

func main() {
	cmd.Execute()
}
