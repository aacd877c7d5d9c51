package main

import "instavision/cmd/server"

func main() {
	server.Init().Run()
}
