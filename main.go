package main

import "tachyon/constellation/cmd"

func main() {
	cmd.Execute()
}
