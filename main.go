package main

import "github.com/samsaffron/blockstream/cmd"

func main() {
	cmd.Execute()
}
