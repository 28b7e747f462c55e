package main

import "github.com/JakeFAU/hn-dataset-sync/cmd"

func main() {
	cmd.Execute()
}
