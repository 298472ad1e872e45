package main

import (
	"github.com/tomasstrnad1997/mines_solver/client"
)

func main() {
	client.RunClient()
}
