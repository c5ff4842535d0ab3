package main

import "github.com/AnalineS/tiercache/cmd"

func main() {
	cmd.Execute()
}
