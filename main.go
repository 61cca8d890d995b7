package main

import "github.com/filiksyos/linkedin-search-app/cmd"

func main() {
	cmd.Execute()
}
