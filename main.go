// Command todo is a to-do list with groups and exact reminders.
package main

import "github.com/patseev1987/todolist/cmd"

func main() {
	cmd.Execute()
}
