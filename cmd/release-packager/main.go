package main

import "github.com/oshokin/release-packager/cmd/release-packager/cmd"

func main() {
	cmd.Execute()
}
