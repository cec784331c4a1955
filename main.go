package main

import "github.com/24HeuresINSA/OverRun-backend/cmd"

func main() {
	cmd.Execute()
}
