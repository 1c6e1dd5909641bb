package main

import "github.com/oshokin/wake-bulb/cmd/wake-bulb/cmd"

func main() {
	cmd.Execute()
}
