package main

import "fundflow/services/fundd"

func main() {
	fundd.Run()
}
