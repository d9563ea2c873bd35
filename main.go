package main

import "github.com/Pjt727/timetable/cmd"

func main() {
	cmd.Execute()
}
