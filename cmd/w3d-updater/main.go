package main

import "github.com/wphicks/w3d-updater/cmd/w3d-updater/cmd"

func main() {
	cmd.Execute()
}
